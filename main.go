package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"librarydesk/library"
	"librarydesk/sqlitestore"
)

func main() {
	cfg := library.LoadConfig()

	root := &cobra.Command{
		Use:   "librarydesk",
		Short: "Desktop library circulation tool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cfg)
		},
	}
	root.PersistentFlags().StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the SQLite database")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	authors         *library.AuthorHandler
	classifications *library.ClassificationHandler
	items           *library.ItemHandler
	users           *library.UserHandler
	rentals         *library.RentalHandler
}

func newApp(store *sqlitestore.Store, cfg library.Config) (*app, error) {
	v := library.NewValidator(store)
	users := library.NewUserHandler(store, v, library.NewUsernameCache())
	if err := users.Setup(); err != nil {
		return nil, err
	}
	items := library.NewItemHandler(store, v)
	return &app{
		authors:         library.NewAuthorHandler(store, v),
		classifications: library.NewClassificationHandler(store, v),
		items:           items,
		users:           users,
		rentals:         library.NewRentalHandler(store, v, cfg, users, items),
	}, nil
}

func runShell(cfg library.Config) error {
	store, err := sqlitestore.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	a, err := newApp(store, cfg)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Welcome to the Librarydesk circulation shell!")
	fmt.Println("Available commands:")
	fmt.Println("  Catalog: add author, add classification, add literature, add film, list items")
	fmt.Println("  Accounts: add user, list users, login")
	fmt.Println("  Circulation: rent, return, list rentals, list overdue")
	fmt.Println("  Maintenance: delete item, undo delete item, remove item")
	fmt.Println("  System: exit")

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		cmd := strings.TrimSpace(scanner.Text())

		switch cmd {
		case "add author":
			a.handleAddAuthor(scanner)
		case "add classification":
			a.handleAddClassification(scanner)
		case "add literature":
			a.handleAddItem(scanner, library.ItemLiterature)
		case "add film":
			a.handleAddItem(scanner, library.ItemFilm)
		case "add user":
			a.handleAddUser(scanner)
		case "list items":
			a.handleListItems()
		case "list users":
			a.handleListUsers()
		case "list rentals":
			a.handleListRentals()
		case "list overdue":
			a.handleListOverdue()
		case "login":
			a.handleLogin(scanner)
		case "rent":
			a.handleRent(scanner)
		case "return":
			a.handleReturn(scanner)
		case "delete item":
			a.handleItemFlag(scanner, a.items.Delete, "soft-deleted")
		case "undo delete item":
			a.handleItemFlag(scanner, a.items.UndoDelete, "restored")
		case "remove item":
			a.handleItemFlag(scanner, a.items.HardDelete, "permanently removed")
		case "exit":
			fmt.Println("Goodbye!")
			return nil
		default:
			fmt.Println("Unknown command. Type one of the available commands listed above.")
		}
	}
	return nil
}

// readPassword securely reads a password with masking.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(bytePassword)), nil
}

func promptLine(sc *bufio.Scanner, prompt string) (string, bool) {
	fmt.Print(prompt)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func promptInt(sc *bufio.Scanner, prompt string) (int, bool) {
	s, ok := promptLine(sc, prompt)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		fmt.Printf("Invalid number: %s\n", s)
		return 0, false
	}
	return n, true
}

func (a *app) handleAddAuthor(sc *bufio.Scanner) {
	first, ok := promptLine(sc, "First name: ")
	if !ok {
		return
	}
	last, ok := promptLine(sc, "Last name: ")
	if !ok {
		return
	}
	bio, ok := promptLine(sc, "Biography (optional): ")
	if !ok {
		return
	}
	author, err := a.authors.Create(first, last, bio)
	if err != nil {
		fmt.Printf("Error adding author: %v\n", err)
		return
	}
	fmt.Printf("Added author '%s %s' with ID %d\n", author.FirstName(), author.LastName(), author.ID())
}

func (a *app) handleAddClassification(sc *bufio.Scanner) {
	name, ok := promptLine(sc, "Name: ")
	if !ok {
		return
	}
	desc, ok := promptLine(sc, "Description: ")
	if !ok {
		return
	}
	c, err := a.classifications.Create(name, desc)
	if err != nil {
		fmt.Printf("Error adding classification: %v\n", err)
		return
	}
	fmt.Printf("Added classification '%s' with ID %d\n", c.Name(), c.ID())
}

func (a *app) handleAddItem(sc *bufio.Scanner, kind library.ItemKind) {
	title, ok := promptLine(sc, "Title: ")
	if !ok {
		return
	}
	classificationID, ok := promptInt(sc, "Classification ID: ")
	if !ok {
		return
	}
	authorID, ok := promptInt(sc, "Author ID: ")
	if !ok {
		return
	}

	var (
		item *library.Item
		err  error
	)
	if kind == library.ItemLiterature {
		isbn, ok := promptLine(sc, "ISBN (optional): ")
		if !ok {
			return
		}
		item, err = a.items.CreateLiterature(title, classificationID, authorID, isbn)
	} else {
		runtime, ok := promptInt(sc, "Runtime minutes: ")
		if !ok {
			return
		}
		item, err = a.items.CreateFilm(title, classificationID, authorID, runtime)
	}
	if err != nil {
		fmt.Printf("Error adding item: %v\n", err)
		return
	}
	fmt.Printf("Added %s '%s' with ID %d\n", item.Kind(), item.Title(), item.ID())
}

func (a *app) handleAddUser(sc *bufio.Scanner) {
	username, ok := promptLine(sc, "Username: ")
	if !ok {
		return
	}
	typeStr, ok := promptLine(sc, "Type (patron/admin): ")
	if !ok {
		return
	}
	allowed, ok := promptInt(sc, "Allowed rentals: ")
	if !ok {
		return
	}
	password, err := readPassword(fmt.Sprintf("Enter password for %s: ", username))
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	u, err := a.users.Create(username, password, library.UserType(typeStr), allowed)
	if err != nil {
		fmt.Printf("Error adding user: %v\n", err)
		return
	}
	fmt.Printf("Added user '%s' with ID %d\n", u.Username(), u.ID())
}

func (a *app) handleListItems() {
	items, err := a.items.List(false)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(items) == 0 {
		fmt.Println("No items in the catalog.")
		return
	}
	fmt.Printf("%-5s %-12s %-40s %-10s\n", "ID", "Kind", "Title", "Available")
	fmt.Println(strings.Repeat("-", 75))
	for _, it := range items {
		avail := "Yes"
		if !it.Available() {
			avail = "No"
		}
		fmt.Printf("%-5d %-12s %-40s %-10s\n", it.ID(), it.Kind(), truncateString(it.Title(), 40), avail)
	}
}

func (a *app) handleListUsers() {
	users, err := a.users.List(false)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(users) == 0 {
		fmt.Println("No users registered.")
		return
	}
	fmt.Printf("%-5s %-25s %-8s %-10s %-10s %-8s\n", "ID", "Username", "Type", "Rentals", "Late fee", "May rent")
	fmt.Println(strings.Repeat("-", 75))
	for _, u := range users {
		fmt.Printf("%-5d %-25s %-8s %d/%-8d %-10.2f %-8t\n",
			u.ID(), truncateString(u.Username(), 25), u.Type(),
			u.CurrentRentals(), u.AllowedRentals(), u.LateFee(), u.AllowedToRent())
	}
}

func (a *app) handleListRentals() {
	rentals, err := a.rentals.List(false)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(rentals) == 0 {
		fmt.Println("No rentals recorded.")
		return
	}
	printRentals(rentals)
}

func (a *app) handleListOverdue() {
	rentals, err := a.rentals.ListOverdue(time.Now())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(rentals) == 0 {
		fmt.Println("Nothing is overdue.")
		return
	}
	printRentals(rentals)
}

func printRentals(rentals []*library.Rental) {
	now := time.Now()
	fmt.Printf("%-5s %-20s %-30s %-12s %-12s %-8s\n", "ID", "User", "Item", "Due", "Returned", "Fee")
	fmt.Println(strings.Repeat("-", 95))
	for _, r := range rentals {
		returned := "-"
		if !r.Active() {
			returned = r.ReturnDate().Format("2006-01-02")
		}
		fmt.Printf("%-5d %-20s %-30s %-12s %-12s %-8.2f\n",
			r.ID(), truncateString(r.Username(), 20), truncateString(r.ItemTitle(), 30),
			r.DueDate().Format("2006-01-02"), returned, r.LateFee(now))
	}
}

func (a *app) handleLogin(sc *bufio.Scanner) {
	username, ok := promptLine(sc, "Username: ")
	if !ok {
		return
	}
	password, err := readPassword("Password: ")
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	ok, err = a.users.Login(username, password)
	if err != nil {
		fmt.Printf("Error during login: %v\n", err)
		return
	}
	if !ok {
		fmt.Println("Login failed.")
		return
	}
	fmt.Printf("Welcome back, %s!\n", username)
}

func (a *app) handleRent(sc *bufio.Scanner) {
	userID, ok := promptInt(sc, "User ID: ")
	if !ok {
		return
	}
	itemID, ok := promptInt(sc, "Item ID: ")
	if !ok {
		return
	}
	r, err := a.rentals.Create(userID, itemID, time.Time{})
	if err != nil {
		fmt.Printf("Error renting item: %v\n", err)
		return
	}
	fmt.Printf("'%s' rented to %s, due %s\n", r.ItemTitle(), r.Username(), r.DueDate().Format("2006-01-02 15:04"))
}

func (a *app) handleReturn(sc *bufio.Scanner) {
	rentalID, ok := promptInt(sc, "Rental ID: ")
	if !ok {
		return
	}
	r, err := a.rentals.Return(rentalID, time.Time{})
	if err != nil {
		fmt.Printf("Error returning item: %v\n", err)
		return
	}
	if fee := r.LateFee(time.Now()); fee > 0 {
		fmt.Printf("'%s' returned by %s with a late fee of %.2f\n", r.ItemTitle(), r.Username(), fee)
	} else {
		fmt.Printf("'%s' returned by %s on time\n", r.ItemTitle(), r.Username())
	}
}

func (a *app) handleItemFlag(sc *bufio.Scanner, op func(int) error, done string) {
	itemID, ok := promptInt(sc, "Item ID: ")
	if !ok {
		return
	}
	if err := op(itemID); err != nil {
		if errors.Is(err, library.ErrNotFound) {
			fmt.Printf("Item %d not found\n", itemID)
			return
		}
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Item %d %s\n", itemID, done)
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
