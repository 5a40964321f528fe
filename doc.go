/*
Package adns implements an asynchronous stub DNS resolver: a client that
forwards queries to a configured set of upstream recursive servers, never
performing recursion itself.

Resolver

Resolver is the facade most callers use. It normalizes names, consults a
TTL-bounded cache, and dispatches queries over a pool of long-lived UDP
sockets with automatic failover between servers.

Dispatcher

QueryDispatcher owns the pending-query table and matches incoming UDP
datagrams back to the request that sent them by DNS transaction id. It also
implements the "first valid type wins" race used for combined A/AAAA lookups.

ServerPool

ServerPool keeps the ordered list of upstream servers and lazily opens one
UDP socket per server, retiring it after repeated failures.

Cache

ResourceCache memoizes answers by (name, type) for the minimum TTL across
the returned records, including negative (NXDOMAIN/NoData) results.

	r := adns.New(adns.Options{})
	defer r.Close()
	recs, err := r.Resolve4(context.Background(), "example.com")

*/
package adns
