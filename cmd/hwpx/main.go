package main

import (
	"fmt"
	"os"

	"github.com/owpml/go-hwpx/pkg/hwpx"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("go-hwpx - HWPX document toolkit")
		fmt.Println("\nUsage: hwpx <command> [arguments]")
		fmt.Println("\nCommands:")
		fmt.Println("  info <file>       Show package structure and version info")
		fmt.Println("  text <file>       Extract document text")
		fmt.Println("  new <file>        Create an empty document")
		fmt.Println("  version           Show version information")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version":
		fmt.Println("go-hwpx version 0.1.0")
	case "info":
		requireFileArg()
		doc, err := hwpx.Open(os.Args[2])
		if err != nil {
			fail(err)
		}
		defer doc.Close()
		fmt.Printf("mimetype:  %s\n", doc.Package().Mimetype())
		fmt.Printf("sections:  %d\n", len(doc.Sections()))
		fmt.Printf("headers:   %d\n", len(doc.Headers()))
		fmt.Printf("images:    %d\n", len(doc.Images()))
		for key, value := range doc.Version().Attributes() {
			fmt.Printf("version.%s = %s\n", key, value)
		}
	case "text":
		requireFileArg()
		doc, err := hwpx.Open(os.Args[2])
		if err != nil {
			fail(err)
		}
		defer doc.Close()
		text, err := doc.Text()
		if err != nil {
			fail(err)
		}
		fmt.Println(text)
	case "new":
		requireFileArg()
		doc, err := hwpx.New()
		if err != nil {
			fail(err)
		}
		defer doc.Close()
		if err := doc.SaveToPath(os.Args[2]); err != nil {
			fail(err)
		}
		fmt.Printf("created %s\n", os.Args[2])
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func requireFileArg() {
	if len(os.Args) < 3 {
		fmt.Println("missing file argument")
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
