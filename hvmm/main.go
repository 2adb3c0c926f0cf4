// Command hvmm simulates process placement in a hybrid virtual memory.
package main

import "github.com/sarchlab/hvmm/hvmm/cmd"

func main() {
	cmd.Execute()
}
