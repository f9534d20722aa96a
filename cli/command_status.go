package cli

import (
	"context"

	"github.com/macpgp/macpgp/keystore"
)

type commandStatus struct {
	svc appServices
	jo  jsonOutput
	out textOutput
}

type statusInfo struct {
	ConfigFile      string            `json:"configFile"`
	KeyStorePath    string            `json:"keyStorePath"`
	KeyCount        int               `json:"keyCount"`
	SecretKeyCount  int               `json:"secretKeyCount"`
	PassphraseVault string            `json:"passphraseVault"`
	LastBackup      *lastBackupRecord `json:"lastBackup,omitempty"`
}

func (c *commandStatus) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("status", "Display key store and backup status")
	c.jo.setup(svc, cmd)
	c.out.setup(svc)
	c.svc = svc
	cmd.Action(svc.storeAction(c.run))
}

func (c *commandStatus) run(ctx context.Context, st keystore.Store) error {
	keys, err := st.List(ctx)
	if err != nil {
		return err
	}

	info := &statusInfo{
		ConfigFile:      c.svc.configFileName(),
		KeyStorePath:    c.svc.keystoreDirectory(),
		KeyCount:        len(keys),
		PassphraseVault: c.svc.passphraseVaultName(),
	}

	for _, k := range keys {
		if k.HasSecret() {
			info.SecretKeyCount++
		}
	}

	// A missing record just means no backup has been made yet.
	if rec, err := c.svc.readLastBackup(); err == nil {
		info.LastBackup = rec
	}

	if c.jo.jsonOutput {
		c.out.printStdout("%s\n", c.jo.jsonBytes(info))
		return nil
	}

	c.out.printStdout("Config file:      %v\n", info.ConfigFile)
	c.out.printStdout("Key store:        %v\n", info.KeyStorePath)
	c.out.printStdout("Keys:             %v (%v with secret material)\n", info.KeyCount, info.SecretKeyCount)
	c.out.printStdout("Passphrase vault: %v\n", info.PassphraseVault)

	if lb := info.LastBackup; lb != nil {
		c.out.printStdout("Last backup:      %v, %v key(s) to %v\n", formatTimestamp(lb.LastBackupTime), lb.KeyCount, lb.Path)
	} else {
		c.out.printStdout("Last backup:      none recorded\n")
	}

	return nil
}
