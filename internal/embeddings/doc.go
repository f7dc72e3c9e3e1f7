// Package embeddings turns leave reasons into vectors.
//
// Two providers are supported: FastEmbed runs an ONNX sentence model in
// process (cgo builds only) and TEI calls a text-embeddings-inference
// server over HTTP. NewProvider picks one from configuration.
package embeddings
