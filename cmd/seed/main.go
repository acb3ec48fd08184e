package main

import (
	"fmt"
	"os"

	"librarydesk/library"
	"librarydesk/sqlitestore"
)

// Seeds a fresh database with a small demo catalog and a couple of user
// accounts so the shell has something to work with.
func main() {
	cfg := library.LoadConfig()

	// Start from a clean slate.
	fmt.Println("Cleaning up existing database files...")
	dbFiles := []string{cfg.DBPath, cfg.DBPath + "-shm", cfg.DBPath + "-wal"}
	for _, file := range dbFiles {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Warning: Could not remove %s: %v\n", file, err)
		}
	}

	store, err := sqlitestore.Open(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	v := library.NewValidator(store)
	authors := library.NewAuthorHandler(store, v)
	classifications := library.NewClassificationHandler(store, v)
	items := library.NewItemHandler(store, v)
	users := library.NewUserHandler(store, v, library.NewUsernameCache())
	if err := users.Setup(); err != nil {
		fmt.Fprintf(os.Stderr, "Error preparing user handler: %v\n", err)
		os.Exit(1)
	}

	fiction, err := classifications.Create("Fiction", "Novels and short stories")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding classifications: %v\n", err)
		os.Exit(1)
	}
	film, err := classifications.Create("Film", "Feature films and documentaries")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding classifications: %v\n", err)
		os.Exit(1)
	}

	seedAuthors := [][3]string{
		{"George", "Orwell", "English novelist and essayist."},
		{"Mary", "Shelley", "Author of Frankenstein."},
		{"Fritz", "Lang", "Austrian-German filmmaker."},
	}
	authorIDs := make([]int, 0, len(seedAuthors))
	for _, sa := range seedAuthors {
		a, err := authors.Create(sa[0], sa[1], sa[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error seeding author %s %s: %v\n", sa[0], sa[1], err)
			os.Exit(1)
		}
		authorIDs = append(authorIDs, a.ID())
		fmt.Printf("Seeded author %s %s (ID: %d)\n", a.FirstName(), a.LastName(), a.ID())
	}

	successCount := 0
	literature := []struct {
		title  string
		author int
		isbn   string
	}{
		{"1984", authorIDs[0], "978-0451524935"},
		{"Animal Farm", authorIDs[0], "978-0452284241"},
		{"Frankenstein", authorIDs[1], "978-0486282114"},
	}
	for _, l := range literature {
		it, err := items.CreateLiterature(l.title, fiction.ID(), l.author, l.isbn)
		if err != nil {
			fmt.Printf("ERROR seeding %q: %v\n", l.title, err)
			continue
		}
		fmt.Printf("Seeded literature %q (ID: %d)\n", it.Title(), it.ID())
		successCount++
	}

	if it, err := items.CreateFilm("Metropolis", film.ID(), authorIDs[2], 153); err != nil {
		fmt.Printf("ERROR seeding Metropolis: %v\n", err)
	} else {
		fmt.Printf("Seeded film %q (ID: %d)\n", it.Title(), it.ID())
		successCount++
	}

	seedUsers := []struct {
		name    string
		utype   library.UserType
		allowed int
	}{
		{"alice", library.UserPatron, 3},
		{"admin", library.UserAdmin, 10},
	}
	for _, su := range seedUsers {
		u, err := users.Create(su.name, "changeme", su.utype, su.allowed)
		if err != nil {
			fmt.Printf("ERROR seeding user %q: %v\n", su.name, err)
			continue
		}
		fmt.Printf("Seeded user %q (ID: %d, password \"changeme\")\n", u.Username(), u.ID())
	}

	fmt.Printf("\nSeed complete: %d items in the catalog.\n", successCount)
}
