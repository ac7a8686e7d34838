// Package cli implements the companion terminal client on top of the
// client Store.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sakif/teyvat-companion/internal/client"
	"github.com/sakif/teyvat-companion/internal/model"
)

const usage = `usage: companion <command> [args]

commands:
  register [-name N] [-email E]        create an account
  login [-email E] [-google-token T]   sign in and remember the session
  logout                               forget the session
  me                                   show the signed-in user
  characters [name]                    list characters or show one
  favorites [add <name> | rm <id>]     list or change favorites
  builds [public | add | update <id> | rm <id>]
                                       list or change builds
  explain <character>                  AI lore summary
  recommend <character>                AI build advice
`

// ErrUsage is returned for unknown commands or bad arguments.
var ErrUsage = errors.New("invalid usage")

// App dispatches one command line.
type App struct {
	store  *client.Store
	out    io.Writer
	reader *bufio.Reader
}

func NewApp(store *client.Store, in io.Reader, out io.Writer) *App {
	return &App{store: store, out: out, reader: bufio.NewReader(in)}
}

// Run executes args (without the program name).
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		return a.register(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "logout":
		if err := a.store.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Logged out.")
		return nil
	case "me":
		return a.me(ctx)
	case "characters":
		return a.characters(ctx, rest)
	case "favorites":
		return a.favorites(ctx, rest)
	case "builds":
		return a.builds(ctx, rest)
	case "explain":
		return a.ai(ctx, rest, a.store.Explain)
	case "recommend":
		return a.ai(ctx, rest, a.store.Recommend)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func (a *App) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func (a *App) register(ctx context.Context, args []string) error {
	fs := a.newFlagSet("register")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	var err error
	if *name == "" {
		if *name, err = prompt(a.reader, a.out, "Name"); err != nil {
			return err
		}
	}
	if *email == "" {
		if *email, err = prompt(a.reader, a.out, "Email"); err != nil {
			return err
		}
	}
	password, err := promptPassword(a.out)
	if err != nil {
		return err
	}

	res, err := a.store.Register(ctx, *name, *email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s, %s)\n", res.Message, res.Name, res.Email)
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := a.newFlagSet("login")
	email := fs.String("email", "", "email address")
	googleToken := fs.String("google-token", "", "Google ID token instead of a password")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	if *googleToken != "" {
		if err := a.store.GoogleLogin(ctx, *googleToken); err != nil {
			return err
		}
	} else {
		var err error
		if *email == "" {
			if *email, err = prompt(a.reader, a.out, "Email"); err != nil {
				return err
			}
		}
		password, err := promptPassword(a.out)
		if err != nil {
			return err
		}
		if err := a.store.Login(ctx, *email, password); err != nil {
			return err
		}
	}

	if u := a.store.Auth().Data.User; u != nil {
		fmt.Fprintf(a.out, "Logged in as %s <%s>\n", u.Name, u.Email)
	}
	return nil
}

func (a *App) me(ctx context.Context) error {
	u, err := a.store.LoadProfile(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s>\nid: %s\n", u.Name, u.Email, u.ID)
	return nil
}

func (a *App) characters(ctx context.Context, args []string) error {
	if len(args) > 0 {
		ch, err := a.store.FetchCharacter(ctx, strings.Join(args, "-"))
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "Name\t%s\n", ch.Name)
		fmt.Fprintf(tw, "Title\t%s\n", ch.Title)
		fmt.Fprintf(tw, "Vision\t%s\n", ch.Vision)
		fmt.Fprintf(tw, "Weapon\t%s\n", ch.Weapon)
		fmt.Fprintf(tw, "Nation\t%s\n", ch.Nation)
		fmt.Fprintf(tw, "Rarity\t%d\n", ch.Rarity)
		tw.Flush()
		if ch.Description != "" {
			fmt.Fprintf(a.out, "\n%s\n", ch.Description)
		}
		return nil
	}

	names, err := a.store.FetchCharacters(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(a.out, n)
	}
	return nil
}

func (a *App) favorites(ctx context.Context, args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "add":
			if len(args) < 2 {
				return fmt.Errorf("%w: favorites add <character name>", ErrUsage)
			}
			fav, err := a.store.AddFavorite(ctx, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added %s (%s)\n", fav.CharacterName, fav.ID)
			return nil
		case "rm":
			if len(args) != 2 {
				return fmt.Errorf("%w: favorites rm <id>", ErrUsage)
			}
			if err := a.store.RemoveFavorite(ctx, args[1]); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Favorite deleted successfully")
			return nil
		default:
			return fmt.Errorf("%w: unknown favorites action %q", ErrUsage, args[0])
		}
	}

	favs, err := a.store.FetchFavorites(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCHARACTER")
	for _, f := range favs {
		fmt.Fprintf(tw, "%s\t%s\n", f.ID, f.CharacterName)
	}
	return tw.Flush()
}

func (a *App) builds(ctx context.Context, args []string) error {
	if len(args) == 0 {
		builds, err := a.store.FetchMyBuilds(ctx)
		if err != nil {
			return err
		}
		return a.printBuilds(builds, false)
	}

	switch args[0] {
	case "public":
		builds, err := a.store.FetchPublicBuilds(ctx)
		if err != nil {
			return err
		}
		return a.printBuilds(builds, true)
	case "add":
		payload, _, err := a.parseBuild("builds add", args[1:])
		if err != nil {
			return err
		}
		b, err := a.store.CreateBuild(ctx, payload)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Created build %s\n", b.ID)
		return nil
	case "update":
		payload, rest, err := a.parseBuild("builds update", args[1:])
		if err != nil {
			return err
		}
		if len(rest) != 1 {
			return fmt.Errorf("%w: builds update [flags] <id>", ErrUsage)
		}
		if err := a.store.UpdateBuild(ctx, rest[0], payload); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Build updated successfully")
		return nil
	case "rm":
		if len(args) != 2 {
			return fmt.Errorf("%w: builds rm <id>", ErrUsage)
		}
		if err := a.store.DeleteBuild(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Build deleted successfully")
		return nil
	default:
		return fmt.Errorf("%w: unknown builds action %q", ErrUsage, args[0])
	}
}

// parseBuild reads build flags. -artifact and -notes are sent as null when
// not given; -public is sent only when given.
func (a *App) parseBuild(name string, args []string) (client.BuildPayload, []string, error) {
	fs := a.newFlagSet(name)
	character := fs.String("character", "", "character name")
	weapon := fs.String("weapon", "", "weapon")
	artifact := fs.String("artifact", "", "artifact set")
	notes := fs.String("notes", "", "free-form notes")
	public := fs.Bool("public", false, "share on the public build list")
	if err := fs.Parse(args); err != nil {
		return client.BuildPayload{}, nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	p := client.BuildPayload{CharacterName: *character, Weapon: *weapon}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "artifact":
			p.Artifact = artifact
		case "notes":
			p.Notes = notes
		case "public":
			p.IsPublic = public
		}
	})
	return p, fs.Args(), nil
}

func (a *App) printBuilds(builds []model.Build, withAuthor bool) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	if withAuthor {
		fmt.Fprintln(tw, "ID\tCHARACTER\tWEAPON\tARTIFACT\tAUTHOR")
	} else {
		fmt.Fprintln(tw, "ID\tCHARACTER\tWEAPON\tARTIFACT\tPUBLIC")
	}
	for _, b := range builds {
		last := fmt.Sprint(b.IsPublic)
		if withAuthor {
			last = ""
			if b.Author != nil {
				last = b.Author.Name
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", b.ID, b.CharacterName, b.Weapon, deref(b.Artifact), last)
	}
	return tw.Flush()
}

func (a *App) ai(ctx context.Context, args []string, ask func(context.Context, string) (string, error)) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: a character name is required", ErrUsage)
	}
	text, err := ask(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, text)
	return nil
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
