package resources

import (
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDelay = time.Millisecond * 500

// watchDir calls callback once a burst of changes in directory has settled.
// The returned stop function closes the watcher and ends both goroutines.
func watchDir(directory string, callback func()) (func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	err = watcher.Add(directory)
	if err != nil {
		watcher.Close()
		return nil, err
	}

	reload := make(chan struct{}, 1)
	done := make(chan struct{})
	go scheduleReload(reload, done, callback)
	go handleWatcher(watcher, reload, done)

	return watcher.Close, nil
}

func handleWatcher(
	watcher *fsnotify.Watcher,
	reload chan<- struct{},
	done chan<- struct{},
) {
	defer close(done)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Remove) ||
				event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				select {
				case reload <- struct{}{}:
				default:
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("resource watcher error: %v\n", err)
		}
	}
}

func scheduleReload(
	reload <-chan struct{},
	done <-chan struct{},
	callback func(),
) {
	var timer *time.Timer = nil
	var c <-chan time.Time = nil
	for {
		select {
		case <-reload:
			if timer != nil {
				timer.Reset(reloadDelay)
			} else {
				timer = time.NewTimer(reloadDelay)
				c = timer.C
			}

		case <-c:
			c = nil
			timer = nil
			callback()

		case <-done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}
