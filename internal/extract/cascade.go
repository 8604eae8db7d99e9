package extract

// Mode controls how a cascade combines the results of its rules
type Mode int

const (
	// FirstMatch stops at the first rule that yields a usable value
	FirstMatch Mode = iota
	// CollectAll applies every rule to every matching element and unions the values
	CollectAll
)

// String returns the name of the mode
func (m Mode) String() string {
	if m == CollectAll {
		return "collect-all"
	}
	return "first-match"
}

// Acceptor validates and canonicalizes a raw extracted value.
// Returning false marks the value unusable, which counts as a rule miss.
type Acceptor func(raw string) (string, bool)

// Cascade is the ordered rule list for one field
type Cascade struct {
	Field string
	Mode  Mode
	Rules []Rule
}

// Match is one accepted value and the selector that produced it
type Match struct {
	Value    string
	Selector string
}

// Run evaluates the cascade against doc.
//
// In FirstMatch mode each rule reads only the first element its selector
// matches, and the first accepted value ends the cascade, so at most one Match
// is returned. In CollectAll mode every rule reads every matching element and
// accepted values are de-duplicated in insertion order.
func (c Cascade) Run(doc Document, accept Acceptor) []Match {
	if doc == nil {
		return nil
	}
	if accept == nil {
		accept = nonEmpty
	}
	guarded := func(raw string) (string, bool) {
		v, ok := nonEmpty(raw)
		if !ok {
			return "", false
		}
		return accept(v)
	}

	if c.Mode == FirstMatch {
		for _, rule := range c.Rules {
			el, ok := doc.First(rule.Selector)
			if !ok {
				continue
			}
			if v, ok := rule.read(el, guarded); ok {
				return []Match{{Value: v, Selector: rule.Selector}}
			}
		}
		return nil
	}

	set := NewURLSet()
	var matches []Match
	for _, rule := range c.Rules {
		for _, el := range doc.All(rule.Selector) {
			v, ok := rule.read(el, guarded)
			if !ok {
				continue
			}
			if set.Add(v) {
				matches = append(matches, Match{Value: v, Selector: rule.Selector})
			}
		}
	}
	return matches
}

// Values is Run without the selector bookkeeping
func (c Cascade) Values(doc Document, accept Acceptor) []string {
	matches := c.Run(doc, accept)
	values := make([]string, 0, len(matches))
	for _, m := range matches {
		values = append(values, m.Value)
	}
	return values
}
