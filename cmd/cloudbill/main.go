// Package main is the entry point for cloudbill.
package main

func main() {
	Execute()
}
