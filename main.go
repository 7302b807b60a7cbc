// ./main.go
package main

import (
	"github.com/xkilldash9x/actuate/cmd"
)

func main() {
	cmd.Execute()
}
