package adns

// DNS response codes the core understands. Values match RFC 1035 §4.1.1.
const (
	RcodeNoError  = 0
	RcodeFormErr  = 1
	RcodeServFail = 2
	RcodeNXDomain = 3
	RcodeNotImp   = 4
	RcodeRefused  = 5
)

// Response is the decoded result of a query, matched back to its
// originating PendingEntry by ID.
type Response struct {
	ID      uint16
	Rcode   int
	Answers []Record

	// NegativeTTL is the SOA minimum from the authority section, when the
	// codec surfaced one on a NOERROR/NODATA or NXDOMAIN response. Zero
	// means the codec found no SOA and the caller should fall back to its
	// configured fixed negative TTL.
	NegativeTTL uint32
}

// Codec serializes a Query and parses a Response. The core assumes an
// implementation of this interface and never builds or parses wire bytes
// itself.
type Codec interface {
	Encode(q Query) ([]byte, error)
	Decode(b []byte) (*Response, error)
}
