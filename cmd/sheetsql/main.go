// Command sheetsql serves and manages ephemeral SQL datasets built from
// uploaded spreadsheets.
package main

import "github.com/mesh-intelligence/sheetsql/internal/cli"

func main() {
	cli.Execute()
}
