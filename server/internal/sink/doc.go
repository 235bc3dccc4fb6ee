// Package sink publishes accepted push batches to Kafka (segmentio/kafka-go)
// for downstream consumers such as hunt loggers. With no brokers configured
// New returns Nop and nothing is published.
package sink
