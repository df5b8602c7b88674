package main

import "github.com/fbz-tec/pgxquery/cmd"

func main() {
	cmd.Execute()
}
