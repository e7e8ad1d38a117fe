// Package main provides the permrun CLI, which launches programs through a
// capability-restricted runner.
package main

func main() {
	Execute()
}
