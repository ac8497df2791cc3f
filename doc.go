// Package bunlogs provides an asynchronous, batching log sink.
//
// Log calls never block the caller: the producer-side facade gates on
// level and backpressure, then hands entries across a bounded channel
// to a dispatcher goroutine. The dispatcher accumulates entries and
// drains them into a single write when the batch-size threshold is
// reached, the flush interval elapses, or a caller asks for a flush.
//
// Entries rejected by backpressure are dropped and counted; the count
// is folded into the next batch as one synthetic warning entry, and the
// error callback fires on the first drop of an overflow window and on
// every 100th after that.
//
// Delivery is best-effort, at-most-once, within one process lifetime.
// Entries accepted by the facade reach the destination in arrival
// order.
//
//	logger, err := bunlogs.New(bunlogs.Config{
//		Level:       bunlogs.LevelInfo,
//		Format:      "text",
//		Destination: "stderr",
//	})
//	if err != nil {
//		// ...
//	}
//	defer logger.Close()
//
//	logger.Info("request served", map[string]any{"status": 200})
package bunlogs
