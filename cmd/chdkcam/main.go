// chdkcam drives a CHDK camera through chdkptp: it keeps a live preview
// running from viewport dumps or remote-shot stills, optionally marks
// hands, and turns captured stills into a video.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
