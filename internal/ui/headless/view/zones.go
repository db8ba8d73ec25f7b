package view

import "fmt"

const zoneDialogDismiss = "dialog-dismiss"

func zoneAction(index int) string {
	return fmt.Sprintf("action-%d", index)
}

func zonePromptChoice(index int) string {
	return fmt.Sprintf("prompt-choice-%d", index)
}
