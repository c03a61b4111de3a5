package hashutil

import "fmt"

// UnsupportedContentError is raised when contentHash sees a ContentKind it
// does not recognise. It is fatal for the message: the message is unsyncable
// until the host upgrades to a build that knows the new variant.
type UnsupportedContentError struct {
	Kind string
}

func (e *UnsupportedContentError) Error() string {
	return fmt.Sprintf("hashutil: unsupported content kind %q", e.Kind)
}
