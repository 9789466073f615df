// eMart Console - Terminal Operations Console
//
// A line-oriented console for the eMart Core REST API. It runs the same
// session and navigation kernel the browser console uses: a single
// session store, role-guarded route resolution, and a back guard on
// every protected screen.
//
// Commands:
//
//	login <username> <password>
//	signup <username> <email> <password> [role]
//	go <path>          navigate to a screen
//	back               browser-style back (may open a leave prompt)
//	stay               answer the leave prompt with "Stay"
//	leave              answer the leave prompt with "Log Out"
//	url                print the visible URL
//	whoami             print the current session
//	logout             end the session
//	quit
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/emart-ops/emart-core/internal/console/nav"
	"github.com/emart-ops/emart-core/internal/console/session"
)

// defaultAPIURL is used when EMART_API_URL is not set.
const defaultAPIURL = "http://localhost:8080"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	baseURL := os.Getenv("EMART_API_URL")
	if baseURL == "" {
		baseURL = defaultAPIURL
	}

	client := session.NewClient(baseURL, nil)
	store := session.NewStore(client)

	c := &console{
		client:  client,
		store:   store,
		history: nav.NewHistory(nav.RouteLogin),
	}

	fmt.Printf("eMart console connected to %s\n", baseURL)
	fmt.Printf("> %s\n", c.history.Current())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("emart> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		c.dispatch(line)
	}

	c.closeGuard()
	return scanner.Err()
}

// console ties the session store, history stack and the active screen's
// back guard together, the way the browser shell does.
type console struct {
	client  *session.Client
	store   *session.Store
	history *nav.History
	guard   *nav.BackGuard
}

func (c *console) dispatch(line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	ctx := context.Background()

	switch cmd {
	case "login":
		if len(args) != 2 {
			fmt.Println("usage: login <username> <password>")
			return
		}
		user, err := c.store.Login(ctx, args[0], args[1])
		if err != nil {
			fmt.Printf("login failed: %v\n", err)
			return
		}
		fmt.Printf("logged in as %s (%s)\n", user.Username, user.Role)
		c.navigate(nav.HomeRoute(user.Role))

	case "signup":
		if len(args) < 3 || len(args) > 4 {
			fmt.Println("usage: signup <username> <email> <password> [role]")
			return
		}
		req := session.SignupRequest{Username: args[0], Email: args[1], Password: args[2]}
		if len(args) == 4 {
			req.Role = args[3]
		}
		user, err := c.store.Signup(ctx, req)
		if err != nil {
			fmt.Printf("signup failed: %v\n", err)
			return
		}
		fmt.Printf("account created: %s (%s)\n", user.Username, user.Role)
		c.navigate(nav.HomeRoute(user.Role))

	case "go":
		if len(args) != 1 {
			fmt.Println("usage: go <path>")
			return
		}
		c.navigate(args[0])

	case "back":
		c.history.Back()
		if c.guard != nil && c.guard.ConfirmPromptOpen() {
			fmt.Println("leave this screen and log out? (stay / leave)")
		}
		fmt.Printf("> %s\n", c.history.Current())

	case "stay":
		if c.guard != nil {
			c.guard.Cancel()
		}
		fmt.Printf("> %s\n", c.history.Current())

	case "leave":
		if c.guard != nil {
			c.guard.Confirm()
			c.closeGuard()
		}
		fmt.Printf("> %s\n", c.history.Current())

	case "url":
		fmt.Printf("> %s\n", c.history.Current())

	case "whoami":
		if user := c.store.Current(); user != nil {
			fmt.Printf("%s <%s> role=%s\n", user.Username, user.Email, user.Role)
		} else {
			fmt.Println("not logged in")
		}

	case "logout":
		c.store.Logout()
		c.closeGuard()
		c.history.Replace(nav.RouteLogin)
		fmt.Printf("> %s\n", c.history.Current())

	default:
		fmt.Printf("unknown command %q\n", cmd)
	}
}

// navigate resolves the requested path against the session, reports any
// redirect, and swaps the back guard over to the new screen.
func (c *console) navigate(path string) {
	res := nav.Resolve(path, c.store.Current())
	if res.Redirected {
		fmt.Printf("redirected to %s", res.Path)
		if res.ReturnTo != "" {
			fmt.Printf(" (return to %s after login)", res.ReturnTo)
		}
		fmt.Println()
	}

	c.closeGuard()

	if allowed, protected := nav.RolesFor(res.Path); protected {
		// The guard pushes the screen's entry itself on mount.
		c.guard = nav.NewBackGuard(c.store, c.history, res.Path, allowed)
		c.guard.Mount()
	} else {
		c.history.Push(res.Path)
	}

	fmt.Printf("> %s\n", c.history.Current())
}

func (c *console) closeGuard() {
	if c.guard != nil {
		c.guard.Close()
		c.guard = nil
	}
}
