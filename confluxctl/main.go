package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/docopt/docopt-go"
	"golang.org/x/term"

	confluxfs "github.com/tiendung2306/ConfluxFS"
)

const ConfluxCtlVersion = "0.0.1"

const DefaultApiUrl = "http://localhost:8080"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	usage := `Conflux control.

The default api_url is http://localhost:8080

Usage:
    confluxctl login [--api_url=<api_url>]
        --username=<username>
        [--password=<password>]
    confluxctl register [--api_url=<api_url>]
        --username=<username>
        --email=<email>
        [--password=<password>]
    confluxctl tree [--api_url=<api_url>] --jwt=<jwt>
    confluxctl mkdir [--api_url=<api_url>] --jwt=<jwt>
        [--parent=<parent_id>] <name>
    confluxctl upload [--api_url=<api_url>] --jwt=<jwt>
        [--parent=<parent_id>] <path>
    confluxctl download [--api_url=<api_url>] --jwt=<jwt> <file_id> <path>
    confluxctl mv [--api_url=<api_url>] --jwt=<jwt> <file_id> [<new_parent_id>]
    confluxctl cp [--api_url=<api_url>] --jwt=<jwt> <file_id> [<target_parent_id>]
    confluxctl rm [--api_url=<api_url>] --jwt=<jwt> <file_id>
    confluxctl rename [--api_url=<api_url>] --jwt=<jwt> <file_id> <name>
    confluxctl watch [--api_url=<api_url>] --jwt=<jwt>

Options:
    -h --help                Show this screen.
    --version                Show version.
    --api_url=<api_url>
    --username=<username>
    --email=<email>
    --password=<password>    Prompted when omitted.
    --jwt=<jwt>              Your session JWT.
    --parent=<parent_id>     Parent folder id. Root when omitted.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], ConfluxCtlVersion)
	if err != nil {
		panic(err)
	}

	if login_, _ := opts.Bool("login"); login_ {
		login(opts)
	} else if register_, _ := opts.Bool("register"); register_ {
		register(opts)
	} else if tree_, _ := opts.Bool("tree"); tree_ {
		tree(opts)
	} else if mkdir_, _ := opts.Bool("mkdir"); mkdir_ {
		mkdir(opts)
	} else if upload_, _ := opts.Bool("upload"); upload_ {
		upload(opts)
	} else if download_, _ := opts.Bool("download"); download_ {
		download(opts)
	} else if mv_, _ := opts.Bool("mv"); mv_ {
		mv(opts)
	} else if cp_, _ := opts.Bool("cp"); cp_ {
		cp(opts)
	} else if rm_, _ := opts.Bool("rm"); rm_ {
		rm(opts)
	} else if rename_, _ := opts.Bool("rename"); rename_ {
		rename(opts)
	} else if watch_, _ := opts.Bool("watch"); watch_ {
		watch(opts)
	}
}

func apiUrl(opts docopt.Opts) string {
	if apiUrl_, err := opts.String("--api_url"); err == nil && apiUrl_ != "" {
		return apiUrl_
	}
	return DefaultApiUrl
}

func newApi(opts docopt.Opts) *confluxfs.ConfluxApi {
	api := confluxfs.NewConfluxApiWithContext(context.Background(), apiUrl(opts))
	if jwt, err := opts.String("--jwt"); err == nil && jwt != "" {
		api.SetByJwt(jwt)
	}
	return api
}

func password(opts docopt.Opts) string {
	if password_, err := opts.String("--password"); err == nil && password_ != "" {
		return password_
	}
	fmt.Fprint(os.Stderr, "Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		panic(err)
	}
	return string(passwordBytes)
}

func parentId(opts docopt.Opts, key string) *confluxfs.Id {
	idStr, err := opts.String(key)
	if err != nil || idStr == "" {
		return nil
	}
	id, err := confluxfs.ParseId(idStr)
	if err != nil {
		panic(err)
	}
	return &id
}

func requireFileId(opts docopt.Opts) confluxfs.Id {
	idStr, err := opts.String("<file_id>")
	if err != nil {
		panic(err)
	}
	return confluxfs.RequireParseId(idStr)
}

func login(opts docopt.Opts) {
	username, _ := opts.String("--username")

	api := newApi(opts)
	defer api.Close()

	result, err := api.AuthLoginSync(&confluxfs.AuthLoginArgs{
		Username: username,
		Password: password(opts),
	})
	if err != nil {
		Err.Fatalf("login error = %s", err)
	}
	if result.Error != nil {
		Err.Fatalf("login error = %s", result.Error.Message)
	}

	Out.Printf("%s", result.Token)
}

func register(opts docopt.Opts) {
	username, _ := opts.String("--username")
	email, _ := opts.String("--email")

	api := newApi(opts)
	defer api.Close()

	result, err := api.AuthRegisterSync(&confluxfs.AuthRegisterArgs{
		Username: username,
		Email:    email,
		Password: password(opts),
	})
	if err != nil {
		Err.Fatalf("register error = %s", err)
	}
	if result.Error != nil {
		Err.Fatalf("register error = %s", result.Error.Message)
	}

	Out.Printf("%s", result.Token)
}

func tree(opts docopt.Opts) {
	api := newApi(opts)
	defer api.Close()

	result, err := api.FileTreeSync()
	if err != nil {
		Err.Fatalf("tree error = %s", err)
	}
	printNodes(result.Nodes, 0)
}

func printNodes(nodes []*confluxfs.Node, depth int) {
	for _, node := range nodes {
		marker := ""
		if node.IsFolder() {
			marker = "/"
		}
		Out.Printf("%s%s%s  %s", strings.Repeat("  ", depth), node.Name, marker, node.Id)
		printNodes(node.Children, depth+1)
	}
}

func mkdir(opts docopt.Opts) {
	name, _ := opts.String("<name>")

	api := newApi(opts)
	defer api.Close()

	_, err := api.CreateFolderSync(&confluxfs.CreateFolderArgs{
		Name:     name,
		ParentId: parentId(opts, "--parent"),
	})
	if err != nil {
		Err.Fatalf("mkdir error = %s", err)
	}
	Out.Printf("ok")
}

func upload(opts docopt.Opts) {
	path, _ := opts.String("<path>")

	f, err := os.Open(path)
	if err != nil {
		Err.Fatalf("upload error = %s", err)
	}
	defer f.Close()

	api := newApi(opts)
	defer api.Close()

	_, err = api.UploadFileSync(&confluxfs.UploadFileArgs{
		Name:     filepath.Base(path),
		ParentId: parentId(opts, "--parent"),
		Body:     f,
	})
	if err != nil {
		Err.Fatalf("upload error = %s", err)
	}
	Out.Printf("ok")
}

func download(opts docopt.Opts) {
	path, _ := opts.String("<path>")

	f, err := os.Create(path)
	if err != nil {
		Err.Fatalf("download error = %s", err)
	}
	defer f.Close()

	api := newApi(opts)
	defer api.Close()

	if err := api.DownloadFileSync(requireFileId(opts), f); err != nil {
		Err.Fatalf("download error = %s", err)
	}
	Out.Printf("ok")
}

func mv(opts docopt.Opts) {
	api := newApi(opts)
	defer api.Close()

	_, err := api.MoveFileSync(&confluxfs.MoveFileArgs{
		FileId:      requireFileId(opts),
		NewParentId: parentId(opts, "<new_parent_id>"),
	})
	if err != nil {
		Err.Fatalf("mv error = %s", err)
	}
	Out.Printf("ok")
}

func cp(opts docopt.Opts) {
	api := newApi(opts)
	defer api.Close()

	_, err := api.CopyFileSync(&confluxfs.CopyFileArgs{
		FileId:         requireFileId(opts),
		TargetParentId: parentId(opts, "<target_parent_id>"),
	})
	if err != nil {
		Err.Fatalf("cp error = %s", err)
	}
	Out.Printf("ok")
}

func rm(opts docopt.Opts) {
	api := newApi(opts)
	defer api.Close()

	_, err := api.DeleteFileSync(&confluxfs.DeleteFileArgs{
		FileId: requireFileId(opts),
	})
	if err != nil {
		Err.Fatalf("rm error = %s", err)
	}
	Out.Printf("ok")
}

func rename(opts docopt.Opts) {
	name, _ := opts.String("<name>")

	api := newApi(opts)
	defer api.Close()

	_, err := api.RenameFileSync(&confluxfs.RenameFileArgs{
		FileId: requireFileId(opts),
		Name:   name,
	})
	if err != nil {
		Err.Fatalf("rename error = %s", err)
	}
	Out.Printf("ok")
}

// watch connects to the push channel and prints routed events and
// connection state transitions until interrupted.
func watch(opts docopt.Opts) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := confluxfs.NewClientWithDefaults(ctx, apiUrl(opts), nil)
	defer client.Close()

	if jwt, err := opts.String("--jwt"); err == nil && jwt != "" {
		client.SetByJwt(jwt)
		if sessionJwt, err := confluxfs.ParseSessionJwtUnverified(jwt); err == nil {
			Out.Printf("session user: %s", sessionJwt.Username)
		}
	}

	removeStatusListener := client.Status().AddListener(func(state confluxfs.ConnectionState) {
		Out.Printf("[%s]", state)
	})
	defer removeStatusListener()

	removeOperationListener := client.OperationLog().AddListener(func(operation *confluxfs.Operation) {
		Out.Printf("%s %s %s", operation.ObservedAt.Format("15:04:05"), operation.Kind, string(operation.Data))
	})
	defer removeOperationListener()

	client.Connect()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	client.Disconnect()
}
