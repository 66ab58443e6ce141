// Package main is the entry point for socketgate, a realtime presence and
// rate-limiting gateway for WebSocket namespaces.
package main

func main() {
	Execute()
}
