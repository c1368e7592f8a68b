package temporal

import "strings"

// Selector values accepted by ParseStrategy.
const (
	SelectorToday            = "today"
	SelectorCreationDate     = "creationDate"
	SelectorLastAccessDate   = "lastAccessDate"
	SelectorLastModifiedDate = "lastModifiedDate"
	SelectorAnnotation       = "annotation"
)

// Strategy selects where the reference date comes from.
// The set of implementations is closed; see Resolver.Resolve.
type Strategy interface {
	// Selector returns the configuration string naming this strategy.
	Selector() string
	isStrategy()
}

// Today uses the current local date.
type Today struct{}

// FileCreationDate uses the creation (birth) time of the backing file.
type FileCreationDate struct{}

// FileLastAccessDate uses the last access time of the backing file.
type FileLastAccessDate struct{}

// FileLastModifiedDate uses the last modification time of the backing file.
type FileLastModifiedDate struct{}

// FromAnnotation reads the date from a feature of existing document annotations.
type FromAnnotation struct {
	AnnotationSet  string
	AnnotationType string
	FeatureName    string
}

// Explicit uses a date given verbatim.
type Explicit struct {
	Date string
}

func (Today) Selector() string                { return SelectorToday }
func (FileCreationDate) Selector() string     { return SelectorCreationDate }
func (FileLastAccessDate) Selector() string   { return SelectorLastAccessDate }
func (FileLastModifiedDate) Selector() string { return SelectorLastModifiedDate }
func (FromAnnotation) Selector() string       { return SelectorAnnotation }
func (e Explicit) Selector() string           { return e.Date }

func (Today) isStrategy()                {}
func (FileCreationDate) isStrategy()     {}
func (FileLastAccessDate) isStrategy()   {}
func (FileLastModifiedDate) isStrategy() {}
func (FromAnnotation) isStrategy()       {}
func (Explicit) isStrategy()             {}

// ParseStrategy maps a selector string to a Strategy. Any selector that is not a
// keyword is treated as an explicit date and validated later by the resolver.
// An empty selector yields a nil strategy, which the resolver rejects.
func ParseStrategy(selector string, input FromAnnotation) Strategy {
	switch strings.TrimSpace(selector) {
	case "":
		return nil
	case SelectorToday:
		return Today{}
	case SelectorCreationDate:
		return FileCreationDate{}
	case SelectorLastAccessDate:
		return FileLastAccessDate{}
	case SelectorLastModifiedDate:
		return FileLastModifiedDate{}
	case SelectorAnnotation:
		return input
	default:
		return Explicit{Date: selector}
	}
}
