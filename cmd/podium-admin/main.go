// ABOUTME: Operator CLI for podium account management
// ABOUTME: Talks straight to the key-value store for listing, leveling and removal

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/hscpc/podium/internal/store"
	"github.com/hscpc/podium/internal/user"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "users":
		err = cmdUsers(args)
	case "count":
		err = cmdCount()
	case "set-level":
		err = cmdSetLevel(args)
	case "remove":
		err = cmdRemove(args)
	case "reset":
		err = cmdReset(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: podium-admin <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  users [level]               List users, optionally filtered by level name")
	fmt.Println("  count                       Print the number of user records")
	fmt.Println("  set-level <username> <lvl>  Assign a role level (root..visitor)")
	fmt.Println("  remove <username>           Delete a user and its index entries")
	fmt.Println("  reset --yes                 Wipe the selected logical database")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  REDIS_URL   store connection URL (default redis://localhost:6379)")
	fmt.Println("  PODIUM_DB   logical database number (default 0)")
}

// openStore connects using the same environment the server consumes.
func openStore() (*store.Store, error) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379"
	}
	db := store.DBProduction
	if raw := os.Getenv("PODIUM_DB"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing PODIUM_DB %q: %w", raw, err)
		}
		db = n
	}
	return store.Open(url, db)
}

func cmdUsers(args []string) error {
	filter := user.LevelAny
	if len(args) > 0 {
		var err error
		filter, err = parseLevelName(args[0])
		if err != nil {
			return err
		}
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	users, err := user.List(ctx, st, filter)
	if err != nil {
		return err
	}

	if len(users) == 0 {
		fmt.Println("No users.")
		return nil
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tREALNAME\tLEVEL\tVALID")
	for _, u := range users {
		valid := red("no")
		if u.Valid {
			valid = green("yes")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			u.ID, u.Username, u.Email, u.Realname, u.Level, valid)
	}
	return w.Flush()
}

func cmdCount() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n, err := user.Count(ctx, st)
	if err != nil {
		return err
	}
	fmt.Println(n)
	return nil
}

func cmdSetLevel(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: podium-admin set-level <username> <level>")
	}
	level, err := parseLevelName(args[1])
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	u, err := user.ByUsername(ctx, st, args[0])
	if err != nil {
		return fmt.Errorf("loading %q: %w", args[0], err)
	}
	if err := u.SetLevel(ctx, level); err != nil {
		return err
	}

	color.Green("%s is now %s", u.Username, u.Level)
	return nil
}

func cmdRemove(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: podium-admin remove <username>")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	u, err := user.ByUsername(ctx, st, args[0])
	if err != nil {
		return fmt.Errorf("loading %q: %w", args[0], err)
	}
	if err := u.Remove(ctx); err != nil {
		return err
	}

	color.Green("removed %s", args[0])
	return nil
}

func cmdReset(args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	// Wiping the production selector needs an explicit --yes.
	confirmed := len(args) > 0 && args[0] == "--yes"
	if st.DB() == store.DBProduction && !confirmed {
		return fmt.Errorf("refusing to wipe the production database without --yes")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := st.Reset(ctx); err != nil {
		return err
	}

	color.Yellow("database %d wiped", st.DB())
	return nil
}

// parseLevelName maps a level name (or its numeric value) to a Level.
func parseLevelName(s string) (user.Level, error) {
	switch strings.ToLower(s) {
	case "root":
		return user.LevelRoot, nil
	case "admin":
		return user.LevelAdmin, nil
	case "coach":
		return user.LevelCoach, nil
	case "contestant":
		return user.LevelContestant, nil
	case "visitor":
		return user.LevelVisitor, nil
	case "pending":
		return user.LevelPending, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return user.Level(n), nil
	}
	return user.LevelAny, fmt.Errorf("unknown level %q", s)
}
