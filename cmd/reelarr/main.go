// Command reelarr is the command-line client for the reelarrd API.
package main

func main() {
	Execute()
}
