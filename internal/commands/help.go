package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Show a walkthrough of every wrokdesk command",
	Run: func(cmd *cobra.Command, args []string) {
		showGuide()
	},
}

func showGuide() {
	fmt.Print(`
██╗    ██╗██████╗  ██████╗ ██╗  ██╗
██║    ██║██╔══██╗██╔═══██╗██║ ██╔╝
██║ █╗ ██║██████╔╝██║   ██║█████╔╝
██║███╗██║██╔══██╗██║   ██║██╔═██╗
╚███╔███╔╝██║  ██║╚██████╔╝██║  ██╗
 ╚══╝╚══╝ ╚═╝  ╚═╝ ╚═════╝ ╚═╝  ╚═╝

wrokdesk - client work sessions and time records

SETUP:

  worker add <name>       Register yourself (or a teammate)
  worker ls               List workers and who is timing what
  client add <name>       Register a client
  client ls               List clients

TASKS:

  add <title>             Create a task for a client
    -c, --client          Client name or id
    --ref                 Ticket reference

    Smart syntax:
      @client       Set client
      ABC-123       Ticket reference

    Example:
      wrokdesk add "Draft contract @acme ACME-12"

  ls                      List open tasks
    -s, --status          open|done|archived|all
    -c, --client          Only one client
    --json                JSON output
  search <query>          Find tasks by title or reference
  edit <task>             Change --title or --ref
  done <task>             Mark task as completed
  archive <task>          Hide a task from ls
  reopen <task>           Mark a done or archived task open again

SESSIONS:

  start <client>          Start a session (stops any running one)
    --no-ui               Start without the interactive timer
  timer                   Reopen the interactive timer
  switch <task>           Time a task; the previous interval is recorded
  untask                  Stop the task, keep the session on client time
  dismiss                 Drop the current task's time and resume what ran before
  stop                    Stop the session
  status                  Show what is being timed

    Timer keys:
      w             Switch task
      t             Stop task
      u             Dismiss task
      s             Stop session
      esc/q         Exit (session keeps running)

REPORTS:

  report                  Time records grouped by session
    -p, --period          today|yesterday|week|month|N days|dd/mm/yyyy|all
    -c, --client          Only one client
    --all-workers         Every worker
    --json                JSON output
  timesheet               Weekly hours per task and day

SERVER:

  serve                   HTTP API with live session events
    --addr                Listen address

GLOBAL FLAGS:

  -w, --worker            Act as this worker (or WROKDESK_WORKER)
  --db                    Database file (or WROKDESK_DB)
  --config                Config file (default ~/.wrokdesk/config.yaml)
  --log-level             debug|info|warn|error

`)
}
