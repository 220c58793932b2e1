// Package streamer provides the websocket market-data feed client.
//
// One connection per aggregation run. The protocol is command/response:
// subscribe and unsubscribe commands are acknowledged by id, data events are
// demultiplexed into per-kind delivery channels and consumed one at a time
// with NextEvent.
package streamer
