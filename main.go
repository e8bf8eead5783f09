// Public domain.

package main

import "github.com/soniakeys/gammafit/internal/gfprog"

func main() {
	gfprog.Main()
}
