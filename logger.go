package adns

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Log is the package-level logger. It is silent until a caller assigns a
// level or output, following the same "quiet by default" posture as the
// teacher's custom Logger but backed by logrus instead of a bespoke
// interface, since that is the ambient logging library this module
// otherwise depends on.
var Log = logrus.New()

func init() {
	Log.SetOutput(io.Discard)
}

// logger returns a logrus.Entry pre-populated with fields identifying the
// component and query, mirroring the teacher's per-request logging helper.
func logger(component, name string, rtype RecordType) *logrus.Entry {
	return Log.WithFields(logrus.Fields{
		"component": component,
		"qname":     name,
		"qtype":     rtype,
	})
}
