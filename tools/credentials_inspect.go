package main

import (
	"beam-chat/repositories"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	forget := flag.String("forget", "", "Account whose stored session is removed")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithLogger(nil).
		WithReadOnly(*forget == ""))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()
	repository := repositories.NewCredentialRepository(db)

	if *forget != "" {
		if err = repository.Forget(*forget); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Session of %s removed\n", *forget)
		return
	}

	accounts, err := repository.List()
	if err != nil {
		log.Fatal(err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Account", "Updated", "Cookie", "Domain", "Expires", "Value"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, account := range accounts {
		for _, cookie := range account.Cookies {
			table.Append([]string{
				account.Account,
				account.UpdatedAt.Format(time.DateTime),
				cookie.Name,
				cookie.Domain,
				expiry(cookie.Expires),
				mask(cookie.Value),
			})
		}
	}
	table.Render()
}

func expiry(at time.Time) string {
	if at.IsZero() {
		return "session"
	}
	return at.Format(time.DateTime)
}

// mask keeps the first characters only, cookie values are bearer secrets.
func mask(value string) string {
	if len(value) <= 6 {
		return strings.Repeat("*", len(value))
	}
	return value[:6] + strings.Repeat("*", 6)
}
