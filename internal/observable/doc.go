// Package observable provides ordered observer lists used to drive request
// handlers.
//
// A Subject notifies every subscribed observer in registration order, one at
// a time. A Pipeline is a Subject whose observers are consumed on
// notification: NotifyFirst and NotifyLast remove an observer before
// invoking it, so each observer of a pipeline runs at most once.
//
// # Usage
//
//	subject := observable.NewSubject[string]()
//	subject.Subscribe(observable.NewObserver(func(ctx context.Context, v string) error {
//	    fmt.Println(v)
//	    return nil
//	}))
//
//	pipeline := observable.NewPipeline[string]()
//	pipeline.SubscribeSubject(subject)
//	err := pipeline.NotifyFirst(ctx, "hello")
package observable
