// Package anchors implements anchoring channels: a client protocol that creates or binds to a
// channel on a ledger node, publishes messages linked to a prior message (the anchorage) and
// reads them back in commit order.
//
// Typical use:
//
//	rt, err := anchors.Setup(anchors.Options{Logger: logger})
//	defer rt.Close()
//
//	unbound, err := rt.NewChannel("http://localhost:8080", "")
//	ch, err := unbound.Bind(ctx, "")              // creates a channel
//	res, err := ch.Anchor(ctx, []byte("hello"), ch.FirstAnchorageID())
//	for msg, err := range ch.Follow(ctx, ch.FirstAnchorageID()) { ... }
//
// Every error returned by this package is an *AnchorError; switch on CodeOf(err).
package anchors
