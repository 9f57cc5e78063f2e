// Command restq serves PostgreSQL tables as a REST API generated from
// declarative entity configuration.
package main

func main() {
	Execute()
}
