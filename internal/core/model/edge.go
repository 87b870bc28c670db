package model

// Link is a directed relationship between two nodes. Like Node it is a
// free-form document.
//
// Well-known keys: source, target, value, label, details.
type Link map[string]any

// LinkKey identifies a link. (a,b) and (b,a) are different keys.
type LinkKey struct {
	Source string
	Target string
}

func (l Link) Source() string {
	return AsString(l["source"])
}

func (l Link) Target() string {
	return AsString(l["target"])
}

// HasEndpoints reports whether source and target are non-empty strings.
func (l Link) HasEndpoints() bool {
	src, srcOK := l["source"].(string)
	dst, dstOK := l["target"].(string)
	return srcOK && dstOK && src != "" && dst != ""
}

func (l Link) Key() LinkKey {
	return LinkKey{Source: l.Source(), Target: l.Target()}
}

func (l Link) Details() map[string]any {
	return asObject(l["details"])
}

func (l Link) Clone() Link {
	return Link(cloneDocument(l))
}
