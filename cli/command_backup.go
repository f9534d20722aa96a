package cli

type commandBackup struct {
	create         commandBackupCreate
	restore        commandBackupRestore
	info           commandBackupInfo
	changePassword commandBackupChangePassword
}

func (c *commandBackup) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("backup", "Create, inspect and restore key backups")

	c.create.setup(svc, cmd)
	c.restore.setup(svc, cmd)
	c.info.setup(svc, cmd)
	c.changePassword.setup(svc, cmd)
}
