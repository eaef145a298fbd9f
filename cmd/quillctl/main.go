// Command quillctl is the operator CLI for the Quill API: database seeding
// and configuration checks.
package main

import "quill/cmd/quillctl/command"

func main() {
	command.Execute()
}
