package mailer

// Message is a single outbound email.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Receipt carries the provider's acknowledgement for a sent message.
type Receipt struct {
	MessageID string
}

// Provider delivers messages through a concrete backend.
type Provider interface {
	Name() string
	Send(msg Message) (Receipt, error)
}

// Mailer wraps a Provider with a default sender address.
type Mailer struct {
	provider    Provider
	fromAddress string
}

func New(provider Provider, fromAddress string) *Mailer {
	return &Mailer{provider: provider, fromAddress: fromAddress}
}

// Send delivers msg via the configured provider, filling in the default
// sender when msg.From is empty.
func (m *Mailer) Send(msg Message) (Receipt, error) {
	if msg.From == "" {
		msg.From = m.fromAddress
	}
	return m.provider.Send(msg)
}

func (m *Mailer) ProviderName() string {
	return m.provider.Name()
}
