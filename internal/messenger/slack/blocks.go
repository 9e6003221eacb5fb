package slack

import (
	"fmt"

	slacklib "github.com/slack-go/slack"

	"github.com/citylaw/docket/internal/messenger"
)

// BuildNoticeBlocks builds Slack Block Kit blocks for a task notice. The
// status context and the "Open task" button are only added when set.
func BuildNoticeBlocks(n messenger.Notice) []slacklib.Block {
	text := fmt.Sprintf("*%s*\n%s", n.Title, n.Message)
	blocks := []slacklib.Block{
		slacklib.NewSectionBlock(
			slacklib.NewTextBlockObject(slacklib.MarkdownType, text, false, false),
			nil,
			nil,
		),
	}

	if n.Status != "" {
		blocks = append(blocks, slacklib.NewContextBlock("",
			slacklib.NewTextBlockObject(slacklib.MarkdownType, fmt.Sprintf("*Status:* `%s`", n.Status), false, false),
		))
	}

	if n.Link != "" {
		btn := slacklib.NewButtonBlockElement(
			"open_task",
			"open",
			slacklib.NewTextBlockObject(slacklib.PlainTextType, "Open task", false, false),
		)
		btn.URL = n.Link
		blocks = append(blocks, slacklib.NewActionBlock("task_actions", btn))
	}

	return blocks
}
