// Package pipeline moves sensor records from one source to one sink.
//
// A Pipeline opens the source, then the sink, streams every record through an
// enricher into the sink, and closes the sink before the source. It runs once.
//
// # Lifecycle
//
//	Created -> Opening -> Running -> Draining -> Closed
//	               |                      |
//	               +------> Failed <------+
//
// Stop, cancellation of the run context, and a run deadline all drain
// cleanly and end in Closed. A connect failure, a read failure, or a write
// error whose class is configured as fatal ends in Failed.
//
// # Write errors
//
// Every write error is classified by the sink package. Transient classes are
// logged and the point dropped; the run continues. Fatal classes stop the
// reader and refuse further writes.
//
// # Concurrency
//
// With pipeline.queue_size 0 the reader and writer share one goroutine.
// A positive queue runs them on separate goroutines joined by a buffered
// channel; the reader blocks when the channel is full.
//
// # Usage
//
//	p, err := pipeline.New(pipeline.Deps{
//	    Source:   cfg.Source,
//	    Sink:     cfg.Sink,
//	    Pipeline: cfg.Pipeline,
//	    Logger:   log,
//	})
//	if err != nil {
//	    return err
//	}
//	go func() { <-ctx.Done(); p.Stop() }()
//	return p.Run(ctx)
package pipeline
