package transport

// Middleware decorates a Forwarder.
type Middleware func(Forwarder) Forwarder

// Chain folds mws into one Middleware whose first element runs
// outermost: Chain(a, b)(f) == a(b(f)).
func Chain(mws ...Middleware) Middleware {
	return func(f Forwarder) Forwarder {
		for i := range mws {
			f = mws[len(mws)-1-i](f)
		}
		return f
	}
}

// RelayMiddleware decorates a Relayer.
type RelayMiddleware func(Relayer) Relayer

// ChainRelay is Chain for Relayers.
func ChainRelay(mws ...RelayMiddleware) RelayMiddleware {
	return func(r Relayer) Relayer {
		for i := range mws {
			r = mws[len(mws)-1-i](r)
		}
		return r
	}
}
