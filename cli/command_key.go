package cli

type commandKey struct {
	generate  commandKeyGenerate
	list      commandKeyList
	keyImport commandKeyImport
	export    commandKeyExport
}

func (c *commandKey) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("key", "Create, list, import and export keys").Alias("keys")

	c.generate.setup(svc, cmd)
	c.list.setup(svc, cmd)
	c.keyImport.setup(svc, cmd)
	c.export.setup(svc, cmd)
}
