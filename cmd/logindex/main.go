// Command logindex builds a log index from a feed of blocks and reports its
// root.
package main

func main() {
	Execute()
}
