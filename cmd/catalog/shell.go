package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/storefront/catalog/engine/domain"
	"github.com/storefront/catalog/engine/session"
	"github.com/storefront/catalog/engine/view"
)

const shellHelp = `Commands:
  search <text>          filter by title (empty clears)
  sort <key>             none, title-asc, title-desc, price-asc, price-desc
  toggle title|price     flip a column sort
  size <n>               rows per page
  page <n> | next | prev move between pages
  open <id> | close      show or hide a product
  edit | set <field> <value> | save | cancel
  create title=... price=... [category=...] [description=...] [image=...]
  export [dir]           write the visible list to CSV
  list                   redraw the table
  help | quit`

var errQuit = errors.New("quit")

func (a *app) shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Browse the catalog interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			s := session.New(svc, a.cfg.PageSize, a.log)
			return runShell(cmd.Context(), s, a.cfg.ExportDir, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runShell(ctx context.Context, s *session.Session, exportDir string, in io.Reader, out io.Writer) error {
	snap, err := s.Refresh(ctx)
	if err != nil {
		return err
	}
	renderSnapshot(out, snap)

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		action, err := parseLine(line, exportDir)
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil:
			fmt.Fprintln(out, "error:", err)
			continue
		case action == nil:
			fmt.Fprintln(out, shellHelp)
			continue
		}

		snap, err := s.Dispatch(ctx, action)
		if err != nil {
			fmt.Fprintln(out, "error:", userMessage(err))
		}
		renderSnapshot(out, snap)
	}
}

// parseLine turns one shell line into an action. A nil action with a nil
// error means "print help".
func parseLine(line, exportDir string) (session.Action, error) {
	words, err := splitWords(line)
	if err != nil {
		return nil, err
	}
	verb, args := strings.ToLower(words[0]), words[1:]
	rest := strings.Join(args, " ")

	switch verb {
	case "quit", "exit", "q":
		return nil, errQuit
	case "help", "?":
		return nil, nil
	case "list", "ls":
		return session.GoToPage{Page: 1}, nil
	case "search", "find":
		return session.Search{Term: rest}, nil
	case "sort":
		key, err := view.ParseSortKey(rest)
		if err != nil {
			return nil, err
		}
		return session.SortBy{Key: key}, nil
	case "toggle":
		return session.ToggleSort{Column: strings.ToLower(rest)}, nil
	case "size":
		n, err := intArg(args)
		if err != nil {
			return nil, err
		}
		return session.SetPageSize{Size: n}, nil
	case "page":
		n, err := intArg(args)
		if err != nil {
			return nil, err
		}
		return session.GoToPage{Page: n}, nil
	case "next", "n":
		return session.NextPage{}, nil
	case "prev", "p":
		return session.PrevPage{}, nil
	case "open", "show":
		n, err := intArg(args)
		if err != nil {
			return nil, err
		}
		return session.OpenDetail{ID: n}, nil
	case "close", "back":
		return session.CloseDetail{}, nil
	case "edit":
		return session.StartEdit{}, nil
	case "set":
		if len(args) < 1 {
			return nil, fmt.Errorf("usage: set <field> <value>")
		}
		return session.EditField{Name: args[0], Value: strings.Join(args[1:], " ")}, nil
	case "save":
		return session.SaveEdit{}, nil
	case "cancel":
		return session.CancelEdit{}, nil
	case "create", "new":
		form, err := createForm(args)
		if err != nil {
			return nil, err
		}
		return session.CreateProduct{Form: form}, nil
	case "export":
		dir := exportDir
		if rest != "" {
			dir = rest
		}
		return session.Export{Dir: dir}, nil
	}
	return nil, fmt.Errorf("unknown command %q (try help)", verb)
}

func intArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one number")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", args[0])
	}
	return n, nil
}

func createForm(args []string) (domain.CreateForm, error) {
	form := domain.CreateForm{CategoryID: "1"}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			return form, fmt.Errorf("expected key=value, got %q", arg)
		}
		switch strings.ToLower(k) {
		case "title":
			form.Title = v
		case "price":
			form.Price = v
		case "description", "desc":
			form.Description = v
		case "category", "categoryid":
			form.CategoryID = v
		case "image":
			form.Image = v
		default:
			return form, domain.NewValidationError("field", k, domain.ErrUnknownField)
		}
	}
	return form, nil
}

// splitWords splits on spaces; double quotes group words and may appear
// anywhere in a word, so title="Red Shirt" is one word.
func splitWords(line string) ([]string, error) {
	var (
		words   []string
		cur     strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case r == ' ' && !quoted:
			if started {
				words = append(words, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote")
	}
	if started {
		words = append(words, cur.String())
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return words, nil
}

// userMessage shortens catalog errors for display.
func userMessage(err error) string {
	var ve *domain.ValidationError
	var fe *domain.FetchError
	switch {
	case errors.As(err, &ve):
		return fmt.Sprintf("%s: %v", ve.Field, ve.Wrapped)
	case errors.As(err, &fe):
		if fe.StatusCode != 0 {
			return fmt.Sprintf("the product API answered %d, try again later", fe.StatusCode)
		}
		return "could not reach the product API, try again later"
	case domain.IsParse(err):
		return "the product API sent an unexpected response"
	}
	return err.Error()
}
