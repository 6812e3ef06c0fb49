package command

import "strings"

const prefix = "!"

type Command struct {
	Name string
	Args []string
}

func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Parse reads "!name arg..." messages. Anything else is not a command.
func Parse(content string) (Command, bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, prefix) {
		return Command{}, false
	}
	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return Command{}, false
	}
	return Command{Name: strings.ToLower(fields[0]), Args: fields[1:]}, true
}
