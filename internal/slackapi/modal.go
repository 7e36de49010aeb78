package slackapi

import (
	"github.com/slack-go/slack"
)

// Block and action ids for the create-channel modal. The interaction
// handler reads submitted view state by these ids.
const (
	ModalCallbackID = "create_channel_modal"

	BlockChannelName  = "channel_name_block"
	ActionChannelName = "channel_name_input"

	BlockVisibility  = "visibility_block"
	ActionVisibility = "visibility_select"

	BlockUsers  = "users_block"
	ActionUsers = "users_select"

	VisibilityOptionPublic  = "Public"
	VisibilityOptionPrivate = "Private"
)

// BuildCreateChannelModal builds the modal opened from the slash command:
// a channel name input, a Public/Private select, and an optional member
// picker that returns already-resolved user ids.
func BuildCreateChannelModal() slack.ModalViewRequest {
	nameLabel := slack.NewTextBlockObject(slack.PlainTextType, "Channel name", false, false)
	namePlaceholder := slack.NewTextBlockObject(slack.PlainTextType, "e.g. proj-rollout", false, false)
	nameElement := slack.NewPlainTextInputBlockElement(namePlaceholder, ActionChannelName)
	nameBlock := slack.NewInputBlock(BlockChannelName, nameLabel, nil, nameElement)

	visibilityLabel := slack.NewTextBlockObject(slack.PlainTextType, "Visibility", false, false)
	visibilityPlaceholder := slack.NewTextBlockObject(slack.PlainTextType, "Select visibility", false, false)
	visibilityElement := slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, visibilityPlaceholder, ActionVisibility,
		slack.NewOptionBlockObject(VisibilityOptionPublic,
			slack.NewTextBlockObject(slack.PlainTextType, "Public", false, false), nil),
		slack.NewOptionBlockObject(VisibilityOptionPrivate,
			slack.NewTextBlockObject(slack.PlainTextType, "Private", false, false), nil),
	)
	visibilityBlock := slack.NewInputBlock(BlockVisibility, visibilityLabel, nil, visibilityElement)

	usersLabel := slack.NewTextBlockObject(slack.PlainTextType, "Members to invite", false, false)
	usersPlaceholder := slack.NewTextBlockObject(slack.PlainTextType, "Select members", false, false)
	usersElement := slack.NewOptionsMultiSelectBlockElement(slack.MultiOptTypeUser, usersPlaceholder, ActionUsers)
	usersBlock := slack.NewInputBlock(BlockUsers, usersLabel, nil, usersElement)
	usersBlock.Optional = true

	return slack.ModalViewRequest{
		Type:       slack.VTModal,
		CallbackID: ModalCallbackID,
		Title:      slack.NewTextBlockObject(slack.PlainTextType, "Create a channel", false, false),
		Submit:     slack.NewTextBlockObject(slack.PlainTextType, "Create", false, false),
		Close:      slack.NewTextBlockObject(slack.PlainTextType, "Cancel", false, false),
		Blocks: slack.Blocks{
			BlockSet: []slack.Block{nameBlock, visibilityBlock, usersBlock},
		},
	}
}
