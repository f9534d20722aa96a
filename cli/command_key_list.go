package cli

import (
	"context"
	"time"

	"github.com/macpgp/macpgp/keystore"
)

type commandKeyList struct {
	jo  jsonOutput
	out textOutput
}

type keyListEntry struct {
	Fingerprint string    `json:"fingerprint"`
	Name        string    `json:"name,omitempty"`
	Email       string    `json:"email,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	HasSecret   bool      `json:"hasSecret"`
	Locked      bool      `json:"locked"`
}

func (c *commandKeyList) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("list", "List keys in the store").Alias("ls")
	c.jo.setup(svc, cmd)
	c.out.setup(svc)
	cmd.Action(svc.storeAction(c.run))
}

func (c *commandKeyList) run(ctx context.Context, st keystore.Store) error {
	keys, err := st.List(ctx)
	if err != nil {
		return err
	}

	var jl jsonList

	jl.begin(&c.jo)
	defer jl.end()

	for _, k := range keys {
		if c.jo.jsonOutput {
			jl.emit(keyListEntry{
				Fingerprint: k.Fingerprint,
				Name:        k.Name,
				Email:       k.Email,
				CreatedAt:   k.CreatedAt,
				HasSecret:   k.HasSecret(),
				Locked:      k.Locked(),
			})
		} else {
			c.out.printStdout("%v %v %-15v %v\n", k.Fingerprint, formatTimestamp(k.CreatedAt), keyKind(k), k.UserID())
		}
	}

	return nil
}

func keyKind(k *keystore.Key) string {
	switch {
	case !k.HasSecret():
		return "public"
	case k.Locked():
		return "secret (locked)"
	default:
		return "secret"
	}
}
