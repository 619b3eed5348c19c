// Command anchors builds snarl anchor dictionaries from a pangenome graph,
// assigns long reads to them and extends and merges the supported anchors.
package main

func main() {
	Execute()
}
