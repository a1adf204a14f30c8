// The main package for the careerwatch executable.
package main

import (
	"github.com/JakeFAU/careerwatch/cmd"
)

func main() {
	cmd.Execute()
}
