// rosterctl inspects and maintains the raid snapshot offline, using the same
// configuration as the server. Do not run mutating commands while the server
// is writing to the same store.
//
//	rosterctl list [--guild ID]
//	rosterctl export --raid ID [--out FILE]
//	rosterctl purge-user --user ID
//	rosterctl link-account --guild ID --user ID [--type TYPE] [--account NAME] [--nickname NAME]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/pflag"

	"github.com/danifischer/raidbot/internal/accounts"
	"github.com/danifischer/raidbot/internal/config"
	"github.com/danifischer/raidbot/internal/database"
	"github.com/danifischer/raidbot/internal/gateway"
	"github.com/danifischer/raidbot/internal/model"
	"github.com/danifischer/raidbot/internal/repository"
	"github.com/danifischer/raidbot/internal/service"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		printUsage(stdout)
		return nil
	}
	command, args := args[0], args[1:]

	var (
		guildID uint64
		raidID  string
		userID  uint64
		outPath string
		accType string
		account string
		nick    string
	)
	flagSet := pflag.NewFlagSet("rosterctl "+command, pflag.ContinueOnError)
	flagSet.Uint64Var(&guildID, "guild", 0, "only list raids of this guild")
	flagSet.StringVar(&raidID, "raid", "", "raid ID")
	flagSet.Uint64Var(&userID, "user", 0, "platform user ID")
	flagSet.StringVarP(&outPath, "out", "o", "", "write the export to this file instead of stdout")
	flagSet.StringVar(&accType, "type", "", "account type (defaults to RAID_DEFAULT_ACCOUNT_TYPE)")
	flagSet.StringVar(&account, "account", "", "account name to link")
	flagSet.StringVar(&nick, "nickname", "", "nickname shown on rosters")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if command == "link-account" {
		if guildID == 0 || userID == 0 {
			return errors.New("link-account: --guild and --user are required")
		}
		if account == "" && nick == "" {
			return errors.New("link-account: --account or --nickname is required")
		}
		if accType == "" {
			accType = cfg.Raids.DefaultAccountType
		}
		return linkAccount(stdout, cfg.Raids.AccountsPath, guildID, userID, accType, account, nick)
	}

	if err := cfg.Storage.Validate(); err != nil {
		return err
	}

	roster, closeStore, err := openRoster(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	switch command {
	case "list":
		return listRaids(stdout, roster, guildID)
	case "export":
		if raidID == "" {
			return errors.New("export: --raid is required")
		}
		return exportRaid(stdout, roster, raidID, outPath)
	case "purge-user":
		if userID == 0 {
			return errors.New("purge-user: --user is required")
		}
		changed, err := roster.RemoveUserFromAllRaids(ctx, userID)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "removed user %d from %d raid(s)\n", userID, len(changed))
		for _, id := range changed {
			fmt.Fprintln(stdout, "  "+id)
		}
		return nil
	}
	return fmt.Errorf("unknown command %q", command)
}

// openRoster restores the snapshot into a roster service. Platform side
// effects are only logged; rosterctl has no relay connection.
func openRoster(ctx context.Context, cfg *config.Config) (*service.RosterService, func(), error) {
	store, err := database.Open(ctx, cfg.Storage.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	codec, err := database.NewCodec(cfg.Storage.Codec)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	repo := repository.NewRaidRepository(repository.RaidRepositoryConfig{
		Store:         store,
		Codec:         codec,
		SaveTries:     uint(cfg.Storage.SaveTries),
		RetryInterval: cfg.Storage.RetryInterval,
	})
	if err := repo.Load(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	directory, err := accounts.LoadFile(cfg.Raids.AccountsPath)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	roster := service.NewRosterService(service.RosterServiceConfig{
		RaidRepo:           repo,
		Accounts:           directory,
		Platform:           gateway.NewRelay(gateway.LogSender{}, cfg.Reactions),
		Templates:          cfg.Raids.Templates,
		DefaultAccountType: cfg.Raids.DefaultAccountType,
	})
	return roster, func() { _ = store.Close() }, nil
}

// linkAccount edits the accounts file; a running server reads it on its next
// start
func linkAccount(w io.Writer, path string, guildID, userID uint64, accountType, account, nickname string) error {
	directory, err := accounts.LoadFile(path)
	if err != nil {
		return err
	}
	if account != "" {
		directory.Link(guildID, userID, accountType, account)
	}
	if nickname != "" {
		directory.SetNickname(guildID, userID, nickname)
	}
	if err := directory.SaveFile(path); err != nil {
		return err
	}
	fmt.Fprintf(w, "updated user %d in guild %d (%s)\n", userID, guildID, path)
	return nil
}

func listRaids(w io.Writer, roster *service.RosterService, guildID uint64) error {
	var raids []*model.Raid
	if guildID != 0 {
		raids = roster.ListRaids(guildID)
	} else {
		raids = roster.AllRaids()
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGUILD\tTITLE\tSTART\tSIGNED UP\tFLEX")
	for _, raid := range raids {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			raid.ID,
			strconv.FormatUint(raid.GuildID, 10),
			raid.Title,
			raid.StartTime.Format(time.RFC3339),
			len(raid.Users),
			len(raid.FlexRoles),
		)
	}
	return tw.Flush()
}

func exportRaid(w io.Writer, roster *service.RosterService, raidID, outPath string) error {
	var raid *model.Raid
	for _, r := range roster.AllRaids() {
		if r.ID == raidID {
			raid = r
			break
		}
	}
	if raid == nil {
		return fmt.Errorf("raid %s: %w", raidID, service.ErrRaidNotFound)
	}

	rows := raid.RosterRows()
	if outPath == "" {
		return gocsv.Marshal(&rows, w)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `rosterctl inspects and maintains the raid snapshot.

Commands:
  list        [--guild ID]              list raids
  export      --raid ID [--out FILE]    write a raid's roster as CSV
  purge-user  --user ID                 remove a user from every raid
  link-account --guild ID --user ID [--type TYPE] [--account NAME] [--nickname NAME]
              link an account or set a nickname in the accounts file

Storage settings are read from the same environment as the server.
`)
}
