// Package kreq is the request/response engine of a Kafka-protocol client:
// it builds the wire-exact bytes of a Kafka request, negotiates the
// protocol version to speak, classifies the error code that comes back
// into a corrective action, and drives the retry / metadata-refresh /
// coordinator-rediscovery loops that sit on top of that classification.
//
// The broker connection, the consumer group state machine, message
// batching and compression, and the metadata cache itself are not part
// of this package; they are reached only through the collaborator
// interfaces in collaborators.go.
package kreq
