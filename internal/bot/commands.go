// Package bot — commands.go описывает слэш-команды и их регистрацию.
package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/resource-bot/internal/bot/interaction"
	"serotonyl.ru/resource-bot/internal/config"
	"serotonyl.ru/resource-bot/internal/features/moderation"
)

func float(v float64) *float64 { return &v }

func perms(p int64) *int64 { return &p }

func userOption(description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: description,
		Required:    required,
	}
}

func reasonOption(description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: description,
		Required:    required,
	}
}

// CommandDefinitions — набор слэш-команд с учётом включённых фич.
func CommandDefinitions(cfg *config.Config) []*discordgo.ApplicationCommand {
	dmDisabled := false
	cmds := []*discordgo.ApplicationCommand{{
		Name:                     "sync",
		Description:              "Re-register slash commands (Admin only)",
		DefaultMemberPermissions: perms(discordgo.PermissionAdministrator),
		DMPermission:             &dmDisabled,
	}}

	if cfg.FeatureResourcesEnabled {
		cmds = append(cmds,
			&discordgo.ApplicationCommand{
				Name:        "rep",
				Description: "Acknowledge someone's helpful contribution",
				Options: []*discordgo.ApplicationCommandOption{
					userOption("User to acknowledge", true),
					reasonOption("What they helped with", false),
				},
			},
			&discordgo.ApplicationCommand{
				Name:        "profile",
				Description: "View a contribution profile",
				Options: []*discordgo.ApplicationCommandOption{
					userOption("User to view (defaults to you)", false),
				},
			},
			&discordgo.ApplicationCommand{
				Name:        "leaderboard",
				Description: "Show the top contributors",
				Options: []*discordgo.ApplicationCommandOption{{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "Only count contributions in this channel",
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				}},
			},
		)
	}

	if cfg.FeatureAFKEnabled {
		cmds = append(cmds, &discordgo.ApplicationCommand{
			Name:        "afk",
			Description: "Set your AFK status",
			Options: []*discordgo.ApplicationCommandOption{
				reasonOption("Reason for being AFK", false),
			},
		})
	}

	if cfg.FeatureModerationEnabled {
		cmds = append(cmds, moderationCommands()...)
	}

	for _, c := range cmds {
		if c.DMPermission == nil {
			c.DMPermission = &dmDisabled
		}
	}
	return cmds
}

func moderationCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:                     "warn",
			Description:              "Warn a user (Mod only)",
			DefaultMemberPermissions: perms(discordgo.PermissionModerateMembers),
			Options: []*discordgo.ApplicationCommandOption{
				userOption("User to warn", true),
				reasonOption("Reason for warning", true),
			},
		},
		{
			Name:        "warnings",
			Description: "View a user's warnings",
			Options: []*discordgo.ApplicationCommandOption{
				userOption("User to check", true),
			},
		},
		{
			Name:                     "clearwarnings",
			Description:              "Clear all warnings for a user (Mod only)",
			DefaultMemberPermissions: perms(discordgo.PermissionModerateMembers),
			Options: []*discordgo.ApplicationCommandOption{
				userOption("User to clear warnings for", true),
			},
		},
		{
			Name:                     "kick",
			Description:              "Kick a user from the server (Mod only)",
			DefaultMemberPermissions: perms(discordgo.PermissionKickMembers),
			Options: []*discordgo.ApplicationCommandOption{
				userOption("User to kick", true),
				reasonOption("Reason for kick", false),
			},
		},
		{
			Name:                     "ban",
			Description:              "Ban a user from the server (Mod only)",
			DefaultMemberPermissions: perms(discordgo.PermissionBanMembers),
			Options: []*discordgo.ApplicationCommandOption{
				userOption("User to ban", true),
				reasonOption("Reason for ban", false),
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "delete_days",
					Description: "Number of days of messages to delete (0-7)",
					MinValue:    float(0),
					MaxValue:    moderation.MaxDeleteDays,
				},
			},
		},
		{
			Name:                     "unban",
			Description:              "Unban a user (Mod only)",
			DefaultMemberPermissions: perms(discordgo.PermissionBanMembers),
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "user_id",
				Description: "ID of the user to unban",
				Required:    true,
			}},
		},
		{
			Name:                     "timeout",
			Description:              "Timeout a user (Mod only)",
			DefaultMemberPermissions: perms(discordgo.PermissionModerateMembers),
			Options: []*discordgo.ApplicationCommandOption{
				userOption("User to timeout", true),
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "duration",
					Description: "Duration in minutes",
					Required:    true,
					MinValue:    float(1),
					MaxValue:    moderation.MaxTimeoutMinutes,
				},
				reasonOption("Reason for timeout", false),
			},
		},
		{
			Name:                     "clear",
			Description:              "Clear messages in a channel (Mod only)",
			DefaultMemberPermissions: perms(discordgo.PermissionManageMessages),
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "amount",
				Description: "Number of messages to delete (1-100)",
				Required:    true,
				MinValue:    float(1),
				MaxValue:    moderation.MaxPurge,
			}},
		},
	}
}

// SyncCommands перезаписывает слэш-команды приложения. Если задан
// COMMANDS_GUILD_ID, команды регистрируются только в этой гильдии.
func (b *Bot) SyncCommands(ctx context.Context) (int, error) {
	if b.session.State == nil || b.session.State.User == nil {
		return 0, fmt.Errorf("сессия ещё не готова")
	}
	appID := b.session.State.User.ID

	created, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.CommandsGuildID,
		CommandDefinitions(b.cfg), discordgo.WithContext(ctx))
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"count":    len(created),
		"guild_id": b.cfg.CommandsGuildID,
	}).Info("Слэш-команды синхронизированы")
	return len(created), nil
}

// handleSync — /sync, только для администраторов гильдии и ADMIN_IDS.
func (b *Bot) handleSync(ctx context.Context, i *discordgo.InteractionCreate) {
	actor := interaction.Actor(b.session, i)
	if !actor.Permissions.Administrator && !b.cfg.IsAdmin(actor.ID) {
		interaction.Respond(b.session, i, "You don't have permission to use this command", true)
		return
	}
	if !interaction.Defer(b.session, i, true) {
		return
	}

	n, err := b.SyncCommands(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка синхронизации команд")
		interaction.FollowupText(b.session, i, "Failed to sync commands.", true)
		return
	}
	interaction.FollowupText(b.session, i, fmt.Sprintf("Synced %d commands.", n), true)
}
