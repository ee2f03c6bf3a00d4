package outbox

type channels struct {
	entries   chan *entry
	confirmed chan string
}

func newChannels() *channels {
	return &channels{
		entries:   make(chan *entry, 100),
		confirmed: make(chan string, 1000),
	}
}
