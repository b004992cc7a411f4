// main.go - Annotation tiler entry point
package main

import "github.com/valpere/annotation_tiler/cmd"

func main() {
	cmd.Execute()
}
