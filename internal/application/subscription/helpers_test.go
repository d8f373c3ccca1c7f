package subscription

// Drain waits for every background fetch started by r to settle. Callers
// must not start new fetches on r while draining.
func (r *Resolver) Drain() {
	r.wg.Wait()
}
