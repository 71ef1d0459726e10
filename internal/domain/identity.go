package domain

// Method identifies which strategy of the resolver chain produced a
// tenant identification. The set is closed; a new strategy must extend
// both the enum and every switch over it.
type Method int

const (
	MethodSubdomain Method = iota
	MethodHeader
	MethodPath
	MethodQuery
	MethodToken
)

func (m Method) String() string {
	switch m {
	case MethodSubdomain:
		return "subdomain"
	case MethodHeader:
		return "header"
	case MethodPath:
		return "path"
	case MethodQuery:
		return "query"
	case MethodToken:
		return "token"
	default:
		return "unknown"
	}
}

// Identification is the per-request result of tenant resolution.
// It is produced fresh for each request and never persisted.
type Identification struct {
	Method   Method
	RawValue string
	Slug     string
}
