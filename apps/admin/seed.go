package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/trezcool/journal/core/crud"
	"github.com/trezcool/journal/core/school"
)

// seed creates the default roles that do not exist yet.
func (cli *commandLine) seed(ctx context.Context) error {
	sc, err := cli.scope(school.Role)
	if err != nil {
		return err
	}

	for _, name := range school.DefaultRoles {
		page, err := cli.svc.List(ctx, sc, url.Values{"name": {name}})
		if err != nil {
			return describe(err)
		}
		if hasName(page, name) {
			continue
		}
		if _, err = cli.svc.Create(ctx, sc, crud.Payload{"name": name}); err != nil {
			return describe(err)
		}
		fmt.Fprintf(cli.out, "created role %q\n", name)
	}
	return nil
}

// hasName tells whether page holds an item named name; name filters only match prefixes.
func hasName(page crud.Page, name string) bool {
	for _, item := range page.Items {
		if item["name"] == name {
			return true
		}
	}
	return false
}
