package ui

import (
	"os"

	survey "github.com/AlecAivazis/survey/v2"
)

// Confirm asks a yes/no question on the terminal. The question and the answer
// are recorded in the full log.
func (l *Logger) Confirm(text string, defaultAnswer bool) (bool, error) {
	l.mu.Lock()
	if l.tail != nil {
		l.finalizeTailLocked()
	}
	l.writeFullLocked("[PRMT] " + text + "\n")
	l.mu.Unlock()

	answer := defaultAnswer
	err := survey.AskOne(
		&survey.Confirm{Message: text, Default: defaultAnswer},
		&answer,
		survey.WithStdio(os.Stdin, os.Stdout, os.Stderr),
	)
	if err != nil {
		l.Error("prompt failed: %v", err)
		return false, err
	}

	l.mu.Lock()
	if answer {
		l.writeFullLocked("[ANSW] yes\n")
	} else {
		l.writeFullLocked("[ANSW] no\n")
	}
	l.mu.Unlock()

	return answer, nil
}
