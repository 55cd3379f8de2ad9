package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/trezcool/journal/core"
	"github.com/trezcool/journal/core/crud"
	"github.com/trezcool/journal/core/school"
)

// setPassword sets the password of the user with the given email.
// The user entity hook applies the password policy and stores the hash.
func (cli *commandLine) setPassword(ctx context.Context, email, pwd string) error {
	sc, err := cli.scope(school.User)
	if err != nil {
		return err
	}

	page, err := cli.svc.List(ctx, sc, url.Values{"email": {email}, crud.ParamLimit: {"1"}})
	if err != nil {
		return describe(err)
	}
	if page.Count == 0 {
		return core.NewNotFoundError("User", email)
	}

	id := fmt.Sprint(page.Items[0][crud.IDField])
	if err = cli.svc.Update(ctx, sc, id, crud.Payload{school.PasswordField: pwd}); err != nil {
		return describe(err)
	}
	fmt.Fprintf(cli.out, "password of %s updated\n", email)
	return nil
}
