package main

import (
	"fmt"

	"github.com/pevans/chatexport"
	"github.com/pevans/chatexport/queue"
)

// printChats prints a scanned conversation list in human-readable form.
func printChats(platformName string, chats []chatexport.ConversationSummary) {
	if len(chats) == 0 {
		fmt.Println("No conversations found.")
		return
	}

	fmt.Printf("Found %d conversation(s) on %s\n\n", len(chats), platformName)
	for i, c := range chats {
		fmt.Printf("%d. %s\n", i+1, c.DisplayName)
		fmt.Printf("   Key: %s\n", c.ChatKey)
		if c.LastPreview != "" {
			preview := c.LastPreview
			if len(preview) > 70 {
				preview = preview[:67] + "..."
			}
			fmt.Printf("   Last: %s\n", preview)
		}
		if c.LastActivity != "" {
			fmt.Printf("   When: %s\n", c.LastActivity)
		}
		fmt.Println()
	}
}

// printProgress renders one progress snapshot on a single line.
func printProgress(p chatexport.Progress) {
	fmt.Printf("[%s] %d/%d processed, %d message(s), %d failure(s)",
		p.Status, p.Processed, p.Total, p.MessageCount, len(p.Failures))
	if p.Current != "" {
		fmt.Printf("  (last: %s)", p.Current)
	}
	fmt.Println()
}

// printRunSummary prints the terminal state of a finished run.
func printRunSummary(result *queue.RunResult) {
	fmt.Println()
	fmt.Printf("Run %s: %s\n", result.State.RunID, result.Status)
	fmt.Printf("  Processed: %d\n", len(result.State.Processed))
	fmt.Printf("  Messages:  %d\n", len(result.Messages))
	if len(result.State.Failures) > 0 {
		fmt.Printf("  Failures:\n")
		for _, f := range result.State.Failures {
			fmt.Printf("    %s: %s\n", f.ChatKey, f.Reason)
		}
	}
}
