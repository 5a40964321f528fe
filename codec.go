package adns

import (
	"github.com/miekg/dns"
)

// MsgCodec is the default Codec, backed by github.com/miekg/dns. It builds
// RFC 1035 queries with a single question, RD=1, and no additional records,
// and parses the ANSWER section of responses into typed Records. AUTHORITY
// is consulted only for the SOA minimum used in negative caching and
// ADDITIONAL is ignored; the resolver never propagates either to the
// caller.
type MsgCodec struct{}

var _ Codec = MsgCodec{}

func (MsgCodec) Encode(q Query) ([]byte, error) {
	m := new(dns.Msg)
	m.Id = q.ID
	m.RecursionDesired = true
	m.SetQuestion(q.Name, uint16(q.Type))
	return m.Pack()
}

func (MsgCodec) Decode(b []byte) (*Response, error) {
	m := new(dns.Msg)
	if err := m.Unpack(b); err != nil {
		return nil, MalformedResponseError{Cause: err}
	}

	resp := &Response{
		ID:    m.Id,
		Rcode: m.Rcode,
	}
	for _, rr := range m.Answer {
		if rec, ok := toRecord(rr); ok {
			resp.Answers = append(resp.Answers, rec)
		}
	}
	for _, rr := range m.Ns {
		if soa, ok := rr.(*dns.SOA); ok {
			resp.NegativeTTL = soa.Minttl
			break
		}
	}
	return resp, nil
}

func toRecord(rr dns.RR) (Record, bool) {
	h := rr.Header()
	base := Record{
		Name:  h.Name,
		Type:  RecordType(h.Rrtype),
		TTL:   h.Ttl,
		Class: h.Class,
	}
	switch v := rr.(type) {
	case *dns.A:
		base.IP = v.A.To4()
	case *dns.AAAA:
		base.IP = v.AAAA.To16()
	case *dns.MX:
		base.MX = MXRecord{Preference: v.Preference, Exchange: v.Mx}
	case *dns.SRV:
		base.SRV = SRVRecord{Priority: v.Priority, Weight: v.Weight, Port: v.Port, Target: v.Target}
	case *dns.TXT:
		base.TXT = v.Txt
	case *dns.CNAME:
		base.Text = v.Target
	case *dns.NS:
		base.Text = v.Ns
	case *dns.PTR:
		base.Text = v.Ptr
	default:
		return Record{}, false
	}
	return base, true
}
