package stemma_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/stemma"
	"github.com/aretw0/stemma/pkg/adapters/memory"
	"github.com/aretw0/stemma/pkg/domain"
)

// ExampleNew demonstrates the deferred build-then-run workflow: spawn a root,
// attach recipes (including onto unresolved promises), then resolve the whole
// tree with a single Run call.
func ExampleNew() {
	ctx := context.Background()
	exp := stemma.New("mnist-sweep")

	// 1. Spawn the root state.
	root, err := exp.SpawnTree(ctx, func(ctx context.Context) (any, error) {
		return map[string]int{"epochs": 0}, nil
	})
	if err != nil {
		log.Fatal(err)
	}

	// 2. Define a reusable transformation.
	train := domain.Recipe{
		Name: "train",
		Run: func(ctx context.Context, payload any) (any, error) {
			prev := payload.(map[string]int)
			return map[string]int{"epochs": prev["epochs"] + 10}, nil
		},
	}

	// 3. Chain applications. Each Apply returns a promise immediately;
	// nothing executes yet.
	first, err := exp.Apply(ctx, train, root)
	if err != nil {
		log.Fatal(err)
	}
	second, err := exp.Apply(ctx, train, first)
	if err != nil {
		log.Fatal(err)
	}

	// 4. Resolve everything, parents before children.
	report, err := exp.Run(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Resolved: %d, Failed: %d\n", len(report.Resolved), len(report.Failed))

	// 5. Inspect the final state through its stable handle.
	node, err := exp.Node(second.HandleID())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Epochs: %d\n", node.(*domain.StateNode).Payload.(map[string]int)["epochs"])
	// Output:
	// Resolved: 2, Failed: 0
	// Epochs: 20
}

// ExampleExperiment_Call shows read-only measurements against a resolved
// state. Call never mutates the tree.
func ExampleExperiment_Call() {
	ctx := context.Background()
	exp := stemma.New("eval", stemma.WithPayloadStore(memory.NewStore()))

	root, err := exp.SpawnTree(ctx, func(ctx context.Context) (any, error) {
		return []float64{0.91, 0.87, 0.95}, nil
	})
	if err != nil {
		log.Fatal(err)
	}

	mean := domain.Function{
		Name: "mean-accuracy",
		Run: func(ctx context.Context, payload any) (any, error) {
			scores := payload.([]float64)
			var sum float64
			for _, s := range scores {
				sum += s
			}
			return sum / float64(len(scores)), nil
		},
	}

	got, err := exp.Call(ctx, mean, root)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Mean: %.2f\n", got.(float64))
	// Output:
	// Mean: 0.91
}

// ExampleExperiment_Analyze renders the resolved lineage as an indented
// outline using the static analysis tree.
func ExampleExperiment_Analyze() {
	ctx := context.Background()
	exp := stemma.New("lineage")

	root, err := exp.SpawnTree(ctx, func(ctx context.Context) (any, error) {
		return "base", nil
	})
	if err != nil {
		log.Fatal(err)
	}

	tag := func(name string) domain.Recipe {
		return domain.Recipe{
			Name: name,
			Run: func(ctx context.Context, payload any) (any, error) {
				return payload.(string) + "+" + name, nil
			},
		}
	}

	pruned, err := exp.Apply(ctx, tag("prune"), root)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := exp.Apply(ctx, tag("quantize"), pruned); err != nil {
		log.Fatal(err)
	}
	if _, err := exp.Run(ctx); err != nil {
		log.Fatal(err)
	}

	var printNode func(n *domain.StateNode, depth int)
	tree := exp.Analyze()
	printNode = func(n *domain.StateNode, depth int) {
		label := n.Operator
		if n.Root() {
			label = "root"
		}
		for i := 0; i < depth; i++ {
			fmt.Print("  ")
		}
		fmt.Println(label)
		for _, child := range tree.Children(n.ID) {
			printNode(child, depth+1)
		}
	}
	for _, r := range tree.Roots() {
		printNode(r, 0)
	}
	// Output:
	// root
	//   prune
	//     quantize
}
