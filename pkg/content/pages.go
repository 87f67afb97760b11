package content

// Pages groups modules by page id, remembering the order pages were first
// seen in.
type Pages struct {
	order   []string
	modules map[string][]*Module
}

// NewPages creates an empty bucket.
func NewPages() *Pages {
	return &Pages{modules: map[string][]*Module{}}
}

// Append adds modules to a page.
func (p *Pages) Append(page string, mods ...*Module) {
	if _, ok := p.modules[page]; !ok {
		p.order = append(p.order, page)
	}
	p.modules[page] = append(p.modules[page], mods...)
}

// IDs returns page ids in first-seen order.
func (p *Pages) IDs() []string {
	return append([]string(nil), p.order...)
}

// Modules returns the modules of a page.
func (p *Pages) Modules(page string) []*Module {
	return p.modules[page]
}

// All returns every module, page by page.
func (p *Pages) All() []*Module {
	var all []*Module
	for _, id := range p.order {
		all = append(all, p.modules[id]...)
	}
	return all
}

// Len returns the total number of modules.
func (p *Pages) Len() int {
	n := 0
	for _, mods := range p.modules {
		n += len(mods)
	}
	return n
}

// NonEmpty returns a copy without pages that hold no modules.
func (p *Pages) NonEmpty() *Pages {
	out := NewPages()
	for _, id := range p.order {
		if len(p.modules[id]) > 0 {
			out.Append(id, p.modules[id]...)
		}
	}
	return out
}
