package bus

// Nodes lists every node that sends or receives at least one of the given
// messages, in the order they first appear.
func Nodes(descs []Descriptor) []string {
	seen := make(map[string]bool)
	nodes := make([]string, 0)

	add := func(n string) {
		if seen[n] {
			return
		}

		seen[n] = true
		nodes = append(nodes, n)
	}

	for _, d := range descs {
		add(d.Sender)
		add(d.Receiver)
	}

	return nodes
}

// Descriptors returns the descriptors of the given messages.
func Descriptors(msgs []*Message) []Descriptor {
	descs := make([]Descriptor, len(msgs))
	for i, m := range msgs {
		descs[i] = m.Descriptor
	}

	return descs
}
