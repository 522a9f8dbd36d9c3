package schema

import "strings"

// Kind tags one of the external systems the platform integrates with. The
// set is closed: adding a kind means adding a registry entry below and a
// prober for it.
type Kind string

const (
	KindIdentity       Kind = "identity"
	KindTelephony      Kind = "telephony"
	KindMediaRecording Kind = "media-recording"
	KindSearchIndex    Kind = "search-index"
	KindEmail          Kind = "email"
)

// AllKinds is the declared enumeration order; listings follow it.
var AllKinds = []Kind{
	KindIdentity,
	KindTelephony,
	KindMediaRecording,
	KindSearchIndex,
	KindEmail,
}

func (k Kind) String() string {
	return string(k)
}

func ParseKind(str string) Kind {
	str = strings.ToLower(str)
	for _, k := range AllKinds {
		if str == k.String() {
			return k
		}
	}
	return ""
}
