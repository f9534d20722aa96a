package cli

type commandPassphrase struct {
	set    commandPassphraseSet
	forget commandPassphraseForget
}

func (c *commandPassphrase) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("passphrase", "Manage cached key passphrases")

	c.set.setup(svc, cmd)
	c.forget.setup(svc, cmd)
}
